package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/folder"
	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// handleRequest dispatches one request. Every request gets an internal
// correlation id so log lines from concurrent handlers can be told apart.
func (s *Server) handleRequest(msg *Message) *Message {
	rid := uuid.New().String()
	s.logger.Debug("handling request", "method", msg.Method, "id", msg.Id, "rid", rid)

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "workspace/didChangeFolders":
		return s.handleDidChangeFolders(msg)
	case "textDocument/canProvideConfiguration":
		return s.handleCanProvide(msg)
	case "textDocument/provideConfigurations":
		return s.handleProvide(msg, rid)
	case "workspace/provideBrowseConfiguration":
		return s.handleBrowse(msg)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
}

// handleNotification handles host notifications; none require action today.
func (s *Server) handleNotification(msg *Message) {
	s.logger.Debug("ignoring notification", "method", msg.Method)
}

// decodeParams re-marshals the loosely-typed params into a typed struct.
func decodeParams(params interface{}, out interface{}) error {
	if params == nil {
		return fmt.Errorf("missing params")
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to re-encode params: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode params: %w", err)
	}
	return nil
}

func (s *Server) handleInitialize(msg *Message) *Message {
	var p InitializeParams
	if err := decodeParams(msg.Params, &p); err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
	}

	s.addFolders(p.WorkspaceFolders)

	result := s.foldersResult()
	result.Version = s.version
	return NewResultMessage(msg.Id, result)
}

func (s *Server) handleDidChangeFolders(msg *Message) *Message {
	var p DidChangeFoldersParams
	if err := decodeParams(msg.Params, &p); err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
	}

	for _, wf := range p.Removed {
		root, err := pathFromURI(wf.URI)
		if err != nil {
			s.logger.Warn("ignoring malformed folder uri", "uri", wf.URI, "error", err.Error())
			continue
		}
		s.ws.RemoveFolder(root)
	}
	s.addFolders(p.Added)

	return NewResultMessage(msg.Id, s.foldersResult())
}

// addFolders probes the given folders concurrently and waits for all of
// them; folder order does not matter and probes are independent.
func (s *Server) addFolders(folders []WorkspaceFolder) {
	var wg sync.WaitGroup
	for _, wf := range folders {
		root, err := pathFromURI(wf.URI)
		if err != nil {
			s.logger.Warn("ignoring malformed folder uri", "uri", wf.URI, "error", err.Error())
			continue
		}
		wg.Add(1)
		go func(root fspath.Path) {
			defer wg.Done()
			s.ws.AddFolder(context.Background(), root)
		}(root)
	}
	wg.Wait()
}

// foldersResult snapshots per-folder state for folder-lifecycle responses.
func (s *Server) foldersResult() FoldersResult {
	result := FoldersResult{
		CanConfigure: s.ws.CanConfigure(),
		Folders:      []FolderStatus{},
	}
	for _, f := range s.ws.Folders() {
		status := FolderStatus{
			URI:   uriFromPath(f.Root()),
			State: f.State().String(),
		}
		if reason := f.Reason(); reason != nil {
			status.Reason = reason.Error()
		}
		result.Folders = append(result.Folders, status)
	}
	return result
}

func (s *Server) handleCanProvide(msg *Message) *Message {
	var p FileParams
	if err := decodeParams(msg.Params, &p); err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
	}
	file, err := pathFromURI(p.URI)
	if err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
	}

	f := s.ws.FolderFor(file)
	can := f != nil && f.CanProvideConfig()
	return NewResultMessage(msg.Id, CanProvideResult{CanProvide: can})
}

func (s *Server) handleProvide(msg *Message, rid string) *Message {
	var p FilesParams
	if err := decodeParams(msg.Params, &p); err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
	}

	items := make([]ConfigurationItem, 0, len(p.URIs))
	for _, raw := range p.URIs {
		file, err := pathFromURI(raw)
		if err != nil {
			s.logger.Warn("ignoring malformed file uri", "uri", raw, "rid", rid)
			continue
		}
		f := s.ws.FolderFor(file)
		if f == nil || !f.Recognized() {
			s.logger.Debug("file has no recognized folder", "file", file.String(), "rid", rid)
			continue
		}
		cfg, err := f.Configuration(file)
		if err != nil {
			if errdefs.IsCode(err, errdefs.ConfigUnavailable) {
				s.logger.Debug("no configuration available", "file", file.String(), "rid", rid)
			} else {
				s.logger.Warn("configuration failed", "file", file.String(), "error", err.Error(), "rid", rid)
			}
			continue
		}
		items = append(items, ConfigurationItem{URI: raw, Configuration: cfg})
	}

	return NewResultMessage(msg.Id, ConfigurationsResult{Items: items})
}

func (s *Server) handleBrowse(msg *Message) *Message {
	var p BrowseParams
	if msg.Params != nil {
		if err := decodeParams(msg.Params, &p); err != nil {
			return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
		}
	}

	var targets []*folder.Folder
	if p.URI != "" {
		root, err := pathFromURI(p.URI)
		if err != nil {
			return NewErrorMessage(msg.Id, InvalidParams, err.Error(), nil)
		}
		f := s.ws.FolderFor(root)
		if f == nil || !f.Recognized() {
			return NewResultMessage(msg.Id, BrowseResult{BrowsePath: []string{}})
		}
		targets = []*folder.Folder{f}
	} else {
		targets = s.ws.Recognized()
	}

	seen := make(map[string]bool)
	browse := []string{}
	for _, f := range targets {
		paths, err := f.BrowseConfiguration()
		if err != nil {
			s.logger.Warn("browse configuration failed", "folder", f.Root().String(), "error", err.Error())
			continue
		}
		for _, p := range paths {
			if seen[p.String()] {
				continue
			}
			seen[p.String()] = true
			browse = append(browse, p.String())
		}
	}

	return NewResultMessage(msg.Id, BrowseResult{BrowsePath: browse})
}
