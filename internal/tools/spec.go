// Package tools defines the typed tool surface of the gateway: one field-spec
// table per tool, the canonicalizer that turns loosely-typed arguments into
// the exact request payload the DataLens API expects, and the generated input
// schemas advertised over tools/list.
package tools

// Kind constrains how a field value is validated and shaped.
type Kind int

const (
	// KindString requires a JSON string.
	KindString Kind = iota
	// KindBool requires a JSON boolean.
	KindBool
	// KindNumber requires a JSON number, preserved as given.
	KindNumber
	// KindJSON accepts any JSON value; a string value that looks like a JSON
	// object or array is parsed before use.
	KindJSON
)

// Field maps one argument to one payload key. Names lists every accepted
// argument spelling in declaration order; the first one present wins, and
// supplying several at once is tolerated, not rejected.
type Field struct {
	Key      string
	Names    []string
	Kind     Kind
	Required bool
	// Default is written to the payload when the field is absent. nil means
	// the key is omitted entirely.
	Default any
}

// Tool binds an MCP tool name to a remote method and its field specs.
type Tool struct {
	Name        string
	Method      string
	Description string
	Fields      []Field
}

// Definitions lists every typed wrapper tool in declaration order. Keys, alias
// sets, and defaults here are the compatibility contract with existing
// integrations; changing them changes the wire payload.
var Definitions = []Tool{
	{
		Name:        "datalens_list_directory",
		Method:      "listDirectory",
		Description: "Call listDirectory. By default, lists the root path '/'.",
		Fields: []Field{
			{Key: "path", Names: []string{"path"}, Kind: KindString, Default: "/"},
			{Key: "createdBy", Names: []string{"created_by", "createdBy"}, Kind: KindJSON},
			{Key: "orderBy", Names: []string{"order_by", "orderBy"}, Kind: KindJSON},
			{Key: "filters", Names: []string{"filters"}, Kind: KindJSON},
			{Key: "page", Names: []string{"page"}, Kind: KindNumber},
			{Key: "pageSize", Names: []string{"page_size", "pageSize"}, Kind: KindNumber},
			{Key: "includePermissionsInfo", Names: []string{"include_permissions_info", "includePermissionsInfo"}, Kind: KindBool},
		},
	},
	{
		Name:        "datalens_get_entries",
		Method:      "getEntries",
		Description: "Call getEntries. Pass any getEntries request fields.",
		Fields: []Field{
			{Key: "excludeLocked", Names: []string{"exclude_locked", "excludeLocked"}, Kind: KindBool},
			{Key: "includeData", Names: []string{"include_data", "includeData"}, Kind: KindBool},
			{Key: "includeLinks", Names: []string{"include_links", "includeLinks"}, Kind: KindBool},
			{Key: "filters", Names: []string{"filters"}, Kind: KindJSON},
			{Key: "orderBy", Names: []string{"order_by", "orderBy"}, Kind: KindJSON},
			{Key: "createdBy", Names: []string{"created_by", "createdBy"}, Kind: KindJSON},
			{Key: "page", Names: []string{"page"}, Kind: KindNumber},
			{Key: "pageSize", Names: []string{"page_size", "pageSize"}, Kind: KindNumber},
			{Key: "includePermissionsInfo", Names: []string{"include_permissions_info", "includePermissionsInfo"}, Kind: KindBool},
			{Key: "ignoreWorkbookEntries", Names: []string{"ignore_workbook_entries", "ignoreWorkbookEntries"}, Kind: KindBool},
			{Key: "scope", Names: []string{"scope"}, Kind: KindString},
			{Key: "ids", Names: []string{"ids"}, Kind: KindJSON},
		},
	},
	{
		Name:        "datalens_get_dataset",
		Method:      "getDataset",
		Description: "Call getDataset by dataset_id. Optional: workbook_id, rev_id and other request fields.",
		Fields: []Field{
			{Key: "datasetId", Names: []string{"dataset_id", "datasetId"}, Kind: KindString, Required: true},
			{Key: "workbookId", Names: []string{"workbook_id", "workbookId"}, Kind: KindString},
			// getDataset expects the revision under snake_case on the wire.
			{Key: "rev_id", Names: []string{"rev_id", "revId"}, Kind: KindString},
		},
	},
	{
		Name:        "datalens_get_dashboard",
		Method:      "getDashboard",
		Description: "Call getDashboard by dashboard_id. Optional: rev_id, include_permissions, include_links, include_favorite, branch and other fields.",
		Fields: []Field{
			{Key: "dashboardId", Names: []string{"dashboard_id", "dashboardId"}, Kind: KindString, Required: true},
			{Key: "revId", Names: []string{"rev_id", "revId"}, Kind: KindString},
			{Key: "includePermissions", Names: []string{"include_permissions", "includePermissions", "includePermissionsInfo"}, Kind: KindBool},
			{Key: "includeLinks", Names: []string{"include_links", "includeLinks"}, Kind: KindBool},
			{Key: "includeFavorite", Names: []string{"include_favorite", "includeFavorite"}, Kind: KindBool},
			{Key: "branch", Names: []string{"branch"}, Kind: KindString},
			{Key: "workbookId", Names: []string{"workbook_id", "workbookId"}, Kind: KindString},
		},
	},
	{
		Name:        "datalens_get_connection",
		Method:      "getConnection",
		Description: "Call getConnection by connection_id. Optional: workbook_id, binded_dataset_id, rev_id.",
		Fields: []Field{
			{Key: "connectionId", Names: []string{"connection_id", "connectionId"}, Kind: KindString, Required: true},
			{Key: "workbookId", Names: []string{"workbook_id", "workbookId"}, Kind: KindString},
			{Key: "bindedDatasetId", Names: []string{"binded_dataset_id", "bindedDatasetId"}, Kind: KindString},
			{Key: "rev_id", Names: []string{"rev_id", "revId"}, Kind: KindString},
		},
	},
	{
		Name:        "datalens_create_connection",
		Method:      "createConnection",
		Description: "Call createConnection. Include required connection fields for the selected `type`.",
		Fields: []Field{
			{Key: "type", Names: []string{"type"}, Kind: KindString, Required: true},
		},
	},
	{
		Name:        "datalens_update_connection",
		Method:      "updateConnection",
		Description: "Call updateConnection. Required: connection_id, data.",
		Fields: []Field{
			{Key: "connectionId", Names: []string{"connection_id", "connectionId"}, Kind: KindString, Required: true},
			{Key: "data", Names: []string{"data"}, Kind: KindJSON, Required: true},
		},
	},
	{
		Name:        "datalens_delete_connection",
		Method:      "deleteConnection",
		Description: "Call deleteConnection by connection_id.",
		Fields: []Field{
			{Key: "connectionId", Names: []string{"connection_id", "connectionId"}, Kind: KindString, Required: true},
		},
	},
	{
		Name:        "datalens_create_dashboard",
		Method:      "createDashboard",
		Description: "Call createDashboard. Required: entry, mode (`save` or `publish`).",
		Fields: []Field{
			{Key: "entry", Names: []string{"entry"}, Kind: KindJSON, Required: true},
			{Key: "mode", Names: []string{"mode"}, Kind: KindString, Required: true},
		},
	},
	{
		Name:        "datalens_update_dashboard",
		Method:      "updateDashboard",
		Description: "Call updateDashboard. Required: entry, mode (`save` or `publish`).",
		Fields: []Field{
			{Key: "entry", Names: []string{"entry"}, Kind: KindJSON, Required: true},
			{Key: "mode", Names: []string{"mode"}, Kind: KindString, Required: true},
		},
	},
	{
		Name:        "datalens_delete_dashboard",
		Method:      "deleteDashboard",
		Description: "Call deleteDashboard by dashboard_id. Optional: lock_token.",
		Fields: []Field{
			{Key: "dashboardId", Names: []string{"dashboard_id", "dashboardId"}, Kind: KindString, Required: true},
			{Key: "lockToken", Names: []string{"lock_token", "lockToken"}, Kind: KindString},
		},
	},
	{
		Name:        "datalens_create_dataset",
		Method:      "createDataset",
		Description: "Call createDataset. Required: dataset. For workbook-scoped creation, pass workbook_id.",
		Fields: []Field{
			{Key: "dataset", Names: []string{"dataset"}, Kind: KindJSON, Required: true},
			// createDataset keeps snake_case keys on the wire.
			{Key: "created_via", Names: []string{"created_via", "createdVia"}, Kind: KindJSON},
			{Key: "dir_path", Names: []string{"dir_path", "dirPath"}, Kind: KindString},
			{Key: "name", Names: []string{"name"}, Kind: KindString},
			{Key: "options", Names: []string{"options"}, Kind: KindJSON},
			{Key: "preview", Names: []string{"preview"}, Kind: KindBool},
			{Key: "workbook_id", Names: []string{"workbook_id", "workbookId"}, Kind: KindString},
		},
	},
	{
		Name:        "datalens_update_dataset",
		Method:      "updateDataset",
		Description: "Call updateDataset by dataset_id. Optional: data.",
		Fields: []Field{
			{Key: "datasetId", Names: []string{"dataset_id", "datasetId"}, Kind: KindString, Required: true},
			{Key: "data", Names: []string{"data"}, Kind: KindJSON, Default: map[string]any{}},
		},
	},
	{
		Name:        "datalens_delete_dataset",
		Method:      "deleteDataset",
		Description: "Call deleteDataset by dataset_id.",
		Fields: []Field{
			{Key: "datasetId", Names: []string{"dataset_id", "datasetId"}, Kind: KindString, Required: true},
		},
	},
	{
		Name:        "datalens_validate_dataset",
		Method:      "validateDataset",
		Description: "Call validateDataset by dataset_id. Optional: workbook_id, data.",
		Fields: []Field{
			{Key: "datasetId", Names: []string{"dataset_id", "datasetId"}, Kind: KindString, Required: true},
			{Key: "workbookId", Names: []string{"workbook_id", "workbookId"}, Kind: KindString},
			{Key: "data", Names: []string{"data"}, Kind: KindJSON, Default: map[string]any{}},
		},
	},
}

// ByName returns the typed tool definition, if any.
func ByName(name string) (Tool, bool) {
	for _, t := range Definitions {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
