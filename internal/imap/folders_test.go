package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skovert/mailmirror/internal/models"
)

func TestResolveFolders(t *testing.T) {
	_, session := dialTestServer(t)

	require.NoError(t, session.CreateFolder("Entw&APw-rfe"))

	folders, err := ResolveFolders(session)
	require.NoError(t, err)

	byName := make(map[string]*models.RemoteFolder)
	for _, folder := range folders {
		byName[folder.Name] = folder
	}

	require.Contains(t, byName, "INBOX")
	assert.Equal(t, models.RoleNone, byName["INBOX"].Role)

	// Wire name decoded for display, preserved for protocol use.
	require.Contains(t, byName, "Entwürfe")
	assert.Equal(t, "Entw&APw-rfe", byName["Entwürfe"].WireName)
}

func TestWireFolderName(t *testing.T) {
	_, session := dialTestServer(t)

	require.NoError(t, session.CreateFolder("Entw&APw-rfe"))

	assert.Equal(t, "INBOX", WireFolderName(session, "INBOX"))
	assert.Equal(t, "Entw&APw-rfe", WireFolderName(session, "Entwürfe"))

	// Unknown folders are re-encoded so the caller can still try.
	assert.Equal(t, "&ZeVnLIqe-", WireFolderName(session, "日本語"))
}

func TestSpecialUseAttributes(t *testing.T) {
	// The memory backend advertises no special-use flags, so attribute
	// matching is checked directly.
	assert.True(t, hasAttribute([]string{"\\HasNoChildren", "\\Sent"}, sentAttr))
	assert.True(t, hasAttribute([]string{"\\sent"}, sentAttr))
	assert.False(t, hasAttribute([]string{"\\Drafts"}, sentAttr))
	assert.True(t, hasAttribute([]string{"\\Junk"}, junkAttr))
	assert.True(t, hasAttribute([]string{"\\Trash"}, trashAttr))
}

func TestBuildFolderTree(t *testing.T) {
	folders := []*models.RemoteFolder{
		{Name: "INBOX", Delimiter: "/"},
		{Name: "Work", Delimiter: "/"},
		{Name: "Work/2025", Delimiter: "/"},
		{Name: "Work/2026", Delimiter: "/"},
		{Name: "Trash", Delimiter: "/", Role: models.RoleTrash},
	}

	tree := BuildFolderTree(folders)
	require.Len(t, tree, 3)

	byName := make(map[string]*models.FolderNode)
	for _, node := range tree {
		byName[node.Name] = node
	}

	require.Contains(t, byName, "Work")
	work := byName["Work"]
	require.Len(t, work.Children, 2)
	assert.Equal(t, "Work/2025", work.Children[0].Path)
	assert.Equal(t, "Work/2026", work.Children[1].Path)

	assert.Equal(t, models.RoleTrash, byName["Trash"].Role)
	assert.Empty(t, byName["INBOX"].Children)
}

func TestBuildFolderTreeImplicitParent(t *testing.T) {
	// A child listed without its parent still produces the parent node.
	folders := []*models.RemoteFolder{
		{Name: "Archive/2026", Delimiter: "/"},
	}

	tree := BuildFolderTree(folders)
	require.Len(t, tree, 1)
	assert.Equal(t, "Archive", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Archive/2026", tree[0].Children[0].Path)
}
