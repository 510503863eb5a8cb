package provider

import (
	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/folder"
)

// WorkspaceFolder identifies one folder by file URI.
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// InitializeParams carries the initial folder set.
type InitializeParams struct {
	WorkspaceFolders []WorkspaceFolder `json:"workspaceFolders"`
}

// DidChangeFoldersParams carries a folder-set delta.
type DidChangeFoldersParams struct {
	Added   []WorkspaceFolder `json:"added"`
	Removed []WorkspaceFolder `json:"removed"`
}

// FolderStatus reports one folder's recognition state.
type FolderStatus struct {
	URI    string `json:"uri"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// FoldersResult answers initialize and workspace/didChangeFolders.
type FoldersResult struct {
	Version      string         `json:"version,omitempty"`
	CanConfigure bool           `json:"canConfigure"`
	Folders      []FolderStatus `json:"folders"`
}

// FileParams names one file by URI.
type FileParams struct {
	URI string `json:"uri"`
}

// FilesParams names several files by URI.
type FilesParams struct {
	URIs []string `json:"uris"`
}

// CanProvideResult answers textDocument/canProvideConfiguration.
type CanProvideResult struct {
	CanProvide bool `json:"canProvide"`
}

// ConfigurationItem pairs one file with its resolved configuration.
type ConfigurationItem struct {
	URI           string                    `json:"uri"`
	Configuration *folder.FileConfiguration `json:"configuration"`
}

// ConfigurationsResult answers textDocument/provideConfigurations. Files
// with no available configuration are left out rather than reported as
// errors; the host falls back to its own defaults for them.
type ConfigurationsResult struct {
	Items []ConfigurationItem `json:"items"`
}

// BrowseParams optionally narrows workspace/provideBrowseConfiguration to
// one folder.
type BrowseParams struct {
	URI string `json:"uri,omitempty"`
}

// BrowseResult answers workspace/provideBrowseConfiguration.
type BrowseResult struct {
	BrowsePath []string `json:"browsePath"`
}

// BuildRequiredParams is the body of a geckocpp/buildRequired notice.
type BuildRequiredParams struct {
	URI            string              `json:"uri"`
	Message        string              `json:"message"`
	SuggestedFixes []errdefs.FixAction `json:"suggestedFixes,omitempty"`
}

// LogParams is the body of a geckocpp/log message.
type LogParams struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
