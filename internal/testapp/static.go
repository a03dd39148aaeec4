package testapp

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var embedded embed.FS

var staticFS = mustSub(embedded, "static")

// pageRoutes are the client-side views; each serves the same shell
var pageRoutes = []string{"/", "/contactList", "/addContact", "/contactDetails", "/editContact"}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// indexHandler serves the SPA shell
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(page)
}
