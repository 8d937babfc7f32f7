package models

// FolderRole classifies special-use folders as advertised by the server.
type FolderRole string

const (
	RoleNone  FolderRole = ""
	RoleSent  FolderRole = "sent"
	RoleJunk  FolderRole = "junk"
	RoleTrash FolderRole = "trash"
)

// RemoteFolder describes one selectable folder as known to the remote server.
// It is derived from a LIST response on every catalog resolution and is not
// persisted on its own.
type RemoteFolder struct {
	// WireName is the raw folder name as the server reports it (modified
	// UTF-7 encoded). All protocol commands use this name.
	WireName string `json:"wire_name"`
	// Name is the decoded, human-readable folder path. Special-use folders
	// get their canonical name (Sent/Junk/Trash) regardless of wire name.
	Name      string     `json:"name"`
	Delimiter string     `json:"delimiter"`
	Flags     []string   `json:"flags"`
	Role      FolderRole `json:"role"`
}

// FolderNode is one node of the hierarchical folder listing used for
// UI folder trees.
type FolderNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Role     FolderRole    `json:"role"`
	Children []*FolderNode `json:"children,omitempty"`
}
