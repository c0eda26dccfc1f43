package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yaktalk/yaktalk/internal/api"
	"github.com/yaktalk/yaktalk/internal/document"
	"github.com/yaktalk/yaktalk/internal/svcctx"
)

// UploadResponse describes an accepted document upload.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
}

// UploadDocumentEndpoint handles POST /api/sessions/{id}/document with a
// multipart PDF upload. A rejected upload leaves the session's previous
// document active.
type UploadDocumentEndpoint struct {
	Loader document.Loader
}

var _ api.Endpoint = (*UploadDocumentEndpoint)(nil)

func (e *UploadDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/document", e.handler
}

func (e *UploadDocumentEndpoint) RequiresInit() bool { return true }

func (e *UploadDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
		return
	}
	homeDir := svcctx.HomeFrom(r.Context())
	if homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not initialized")
		return
	}
	configMgr := svcctx.ConfigFrom(r.Context())
	if configMgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config not initialized")
		return
	}
	logger := svcctx.LoggerFrom(r.Context())

	sess, err := sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", header.Filename))
		return
	}

	if err := homeDir.EnsureSessionUploadsDir(sess.ID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create upload directory: %v", err))
		return
	}
	destPath := filepath.Join(homeDir.SessionUploadsDir(sess.ID), filepath.Base(header.Filename))
	dst, err := os.Create(destPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create file: %v", err))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(destPath)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save file: %v", err))
		return
	}
	dst.Close()

	appCfg := configMgr.Get()
	doc, err := document.Ingest(r.Context(), sess.Store(), e.Loader, document.IngestRequest{
		Path:     destPath,
		Name:     header.Filename,
		MaxBytes: appCfg.Upload.MaxBytes,
		Chunking: document.ChunkOptions{
			Size:    appCfg.Chunking.Size,
			Overlap: appCfg.Chunking.Overlap,
		},
		Logger: logger,
	})
	if err != nil {
		os.Remove(destPath)
		var ingErr *document.IngestionError
		if errors.As(err, &ingErr) {
			writeError(w, http.StatusBadRequest, ingErr.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		DocumentID: doc.ID,
		Name:       doc.Name,
		Pages:      doc.PageCount,
		Chunks:     len(doc.Chunks),
	})
}

func (e *UploadDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <session-id> <file.pdf>",
		Short: "Upload a PDF document into a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			path := "/api/sessions/" + args[0] + "/document"
			if err := client.PostFile(cmd.Context(), path, "file", args[1], &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			fmt.Printf("Document: %s (%s)\n", resp.Name, resp.DocumentID)
			fmt.Printf("Pages:    %d\n", resp.Pages)
			fmt.Printf("Chunks:   %d\n", resp.Chunks)
			return nil
		},
	}
}
