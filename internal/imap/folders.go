package imap

import (
	"sort"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/skovert/mailmirror/internal/imaputf7"
	"github.com/skovert/mailmirror/internal/models"
)

// Special-use attributes advertised by servers supporting RFC 6154.
const (
	sentAttr  = "\\Sent"
	junkAttr  = "\\Junk"
	trashAttr = "\\Trash"
)

// ResolveFolders lists the remote folders, decodes their wire names and
// classifies special-use folders. Server-advertised flags take priority over
// name-based matching: a folder flagged \Sent is presented as "Sent" whatever
// its wire name says.
func ResolveFolders(s *Session) ([]*models.RemoteFolder, error) {
	infos, err := s.ListFolders()
	if err != nil {
		return nil, err
	}

	var folders []*models.RemoteFolder
	for _, info := range infos {
		if hasAttribute(info.Attributes, imap.NoSelectAttr) {
			continue
		}

		folder := &models.RemoteFolder{
			WireName:  info.Name,
			Name:      imaputf7.Decode(info.Name),
			Delimiter: info.Delimiter,
			Flags:     info.Attributes,
			Role:      models.RoleNone,
		}

		switch {
		case hasAttribute(info.Attributes, sentAttr):
			folder.Role = models.RoleSent
			folder.Name = "Sent"
		case hasAttribute(info.Attributes, junkAttr):
			folder.Role = models.RoleJunk
			folder.Name = "Junk"
		case hasAttribute(info.Attributes, trashAttr):
			folder.Role = models.RoleTrash
			folder.Name = "Trash"
		}

		folders = append(folders, folder)
	}

	return folders, nil
}

// WireFolderName resolves a decoded folder name back to the name the server
// knows it by. Special-use names match by flag first, then by decoded-name
// equality; when the folder is unknown the name is re-encoded as a last
// resort so callers can still attempt the operation.
func WireFolderName(s *Session, decodedName string) string {
	folders, err := ResolveFolders(s)
	if err == nil {
		for _, folder := range folders {
			if folder.Name == decodedName {
				return folder.WireName
			}
		}
	}
	return imaputf7.Encode(decodedName)
}

// BuildFolderTree groups a flat folder list into the nested structure used
// for folder-tree presentation. Paths split on each folder's own delimiter.
func BuildFolderTree(folders []*models.RemoteFolder) []*models.FolderNode {
	root := &models.FolderNode{}
	index := map[string]*models.FolderNode{"": root}

	// Parents sort before children, so one pass builds the tree.
	sorted := make([]*models.RemoteFolder, len(folders))
	copy(sorted, folders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, folder := range sorted {
		delimiter := folder.Delimiter
		if delimiter == "" {
			delimiter = "/"
		}

		parts := strings.Split(folder.Name, delimiter)
		path := ""
		parent := root
		for _, part := range parts {
			if path == "" {
				path = part
			} else {
				path = path + delimiter + part
			}

			node, exists := index[path]
			if !exists {
				node = &models.FolderNode{Name: part, Path: path}
				index[path] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}
		// The leaf node carries the folder's role.
		parent.Role = folder.Role
	}

	return root.Children
}

func hasAttribute(attributes []string, attr string) bool {
	for _, a := range attributes {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}
