package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mamaar/shortfunc/pkg/refactor"
)

func (s *Server) handleTextDocumentDidOpen(message *Message) (*Message, error) {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}

	doc := params.TextDocument
	s.mu.Lock()
	s.docs[doc.URI] = &document{version: doc.Version, text: []byte(doc.Text)}
	s.mu.Unlock()

	s.logger.Debug("document opened", "uri", doc.URI, "version", doc.Version)
	return s.publishDiagnostics(doc.URI)
}

func (s *Server) handleTextDocumentDidChange(message *Message) (*Message, error) {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}
	if len(params.ContentChanges) == 0 {
		return nil, nil
	}

	// full sync: the last change carries the whole document
	last := params.ContentChanges[len(params.ContentChanges)-1]
	if last.Range != nil {
		return nil, fmt.Errorf("incremental change to %s is not supported", params.TextDocument.URI)
	}

	uri := params.TextDocument.URI
	s.mu.Lock()
	s.docs[uri] = &document{version: params.TextDocument.Version, text: []byte(last.Text)}
	s.mu.Unlock()

	return s.publishDiagnostics(uri)
}

func (s *Server) handleTextDocumentDidSave(message *Message) (*Message, error) {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}

	uri := params.TextDocument.URI
	if params.Text != nil {
		s.mu.Lock()
		if doc, ok := s.docs[uri]; ok {
			s.docs[uri] = &document{version: doc.version, text: []byte(*params.Text)}
		}
		s.mu.Unlock()
	}
	return s.publishDiagnostics(uri)
}

func (s *Server) handleTextDocumentDidClose(message *Message) (*Message, error) {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return nil, err
	}

	uri := params.TextDocument.URI
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	// clear what was published for the file
	return notification("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})
}

// handleTextDocumentCodeAction offers the ranked extractions of the
// overlong function under the start of the requested range.
func (s *Server) handleTextDocumentCodeAction(ctx context.Context, message *Message) (*Message, error) {
	var params CodeActionParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return s.errorResponse(message.ID, CodeInvalidParams, "Invalid params", err.Error()), nil
	}

	s.mu.RLock()
	initialized, driver := s.initialized, s.driver
	s.mu.RUnlock()

	actions := []CodeAction{}
	if !initialized || !wants(params.Context.Only, KindExtractFunction) {
		return s.successResponse(message.ID, actions), nil
	}

	uri := params.TextDocument.URI
	path := uriToPath(uri)
	if filepath.Ext(path) != ".go" {
		return s.successResponse(message.ID, actions), nil
	}
	content, _, err := s.content(uri)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proposals, err := driver.Propose(path, content, params.Range.Start.Line+1, maxActions)
	if err != nil {
		// usually a file that does not parse while being edited
		s.logger.Debug("no code actions", "uri", uri, "error", err)
		return s.successResponse(message.ID, actions), nil
	}

	var related []Diagnostic
	for _, d := range params.Context.Diagnostics {
		if d.Source == diagnosticSource {
			related = append(related, d)
		}
	}
	for i, p := range proposals {
		actions = append(actions, CodeAction{
			Title:       actionTitle(p),
			Kind:        KindExtractFunction,
			Diagnostics: related,
			IsPreferred: i == 0,
			Edit: &WorkspaceEdit{
				Changes: map[string][]TextEdit{
					uri: textEdits(string(content), string(p.After)),
				},
			},
		})
	}
	s.logger.Debug("code actions", "uri", uri, "line", params.Range.Start.Line+1, "actions", len(actions))
	return s.successResponse(message.ID, actions), nil
}

func actionTitle(p refactor.Proposal) string {
	return fmt.Sprintf("Extract lines %d-%d of %s into %s (score %.2f)", p.FirstLine, p.LastLine, p.Function, p.Helper, p.Score)
}

// wants reports whether a client filter admits kind. Kinds are
// hierarchical: "refactor" admits "refactor.extract.function".
func wants(only []string, kind string) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if kind == o || strings.HasPrefix(kind, o+".") {
			return true
		}
	}
	return false
}

// publishDiagnostics reports the overlong functions of the document at uri.
func (s *Server) publishDiagnostics(uri string) (*Message, error) {
	content, version, err := s.content(uri)
	if err != nil {
		return nil, err
	}
	params := PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: s.diagnose(uriToPath(uri), content),
	}
	return notification("textDocument/publishDiagnostics", params)
}

func (s *Server) diagnose(path string, content []byte) []Diagnostic {
	diagnostics := []Diagnostic{}
	if filepath.Ext(path) != ".go" {
		return diagnostics
	}

	s.mu.RLock()
	driver := s.driver
	s.mu.RUnlock()

	reports, err := driver.Inspect(path, content)
	if err != nil {
		s.logger.Debug("cannot inspect document", "file", path, "error", err)
		return diagnostics
	}
	limit := driver.Options().MaxLength
	for _, rep := range reports {
		if !rep.Overlong {
			continue
		}
		msg := fmt.Sprintf("%s is %d lines long, the limit is %d", rep.Name, rep.Lines, limit)
		if rep.Best != nil {
			msg += fmt.Sprintf("; extracting lines %d-%d into %s leaves %d", rep.Best.FirstLine, rep.Best.LastLine, rep.Best.Helper, rep.Best.Remainder)
		}
		diagnostics = append(diagnostics, Diagnostic{
			Range:    lineRange(content, rep.Line-1),
			Severity: SeverityWarning,
			Code:     diagnosticCode,
			Source:   diagnosticSource,
			Message:  msg,
		})
	}
	return diagnostics
}

// content returns the editor's text of uri when it is open and the file on
// disk otherwise. The version is nil for files read from disk.
func (s *Server) content(uri string) ([]byte, *int, error) {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	var open document
	if ok {
		open = *doc
	}
	s.mu.RUnlock()
	if ok {
		return open.text, &open.version, nil
	}
	content, err := os.ReadFile(uriToPath(uri))
	if err != nil {
		return nil, nil, err
	}
	return content, nil, nil
}
