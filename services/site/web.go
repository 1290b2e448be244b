package site

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myhttp"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
)

const entryDocument = "index.html"

//go:embed public
var embedded embed.FS

type webService struct {
	logger     mylog.Logger
	files      fs.FS
	fileServer http.Handler
}

// NewWebService serves the assets in staticDir, or the bundled ones when staticDir is empty.
func NewWebService(staticDir string) (*webService, error) {
	if staticDir != "" {
		return newWebService(os.DirFS(staticDir)), nil
	}

	files, err := fs.Sub(embedded, "public")
	if err != nil {
		return nil, fmt.Errorf("error opening bundled assets: %s", err)
	}
	return newWebService(files), nil
}

func newWebService(files fs.FS) *webService {
	return &webService{
		logger:     mylog.New("site"),
		files:      files,
		fileServer: http.FileServer(http.FS(files)),
	}
}

// RegisterEndpoints must be called after all other services: the routes registered here
// match everything that is left.
func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.PathPrefix("/api/").HandlerFunc(s.unknownAPIPage())
	router.PathPrefix("/").HandlerFunc(s.assetPage()).Methods("GET", "HEAD")

	return nil
}

func (s *webService) unknownAPIPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		errorWriter.WriteError(c, w, 1, myerrors.NewNotFoundError(fmt.Errorf("no endpoint %s %s", r.Method, r.URL.Path)))
	}
}

// assetPage serves existing files as is. Anything else gets the entry document so the
// browser can route on the client.
func (s *webService) assetPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" && name != entryDocument {
			info, err := fs.Stat(s.files, name)
			if err == nil && !info.IsDir() {
				s.fileServer.ServeHTTP(w, r)
				return
			}
		}

		s.serveEntryDocument(w, r)
	}
}

func (s *webService) serveEntryDocument(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.files, entryDocument)
	if err != nil {
		c := mycontext.ContextFromHTTPRequest(r)
		myhttp.NewWriter(s.logger).WriteError(c, w, 2, myerrors.NewNotFoundError(fmt.Errorf("entry document missing: %s", err)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}
