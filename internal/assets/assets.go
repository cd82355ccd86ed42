// Package assets embeds the playground page, its client script and
// stylesheet, and the default welcome text.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed client/*
var clientFS embed.FS

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetPageTemplate returns the html/template source of the playground page
func GetPageTemplate() ([]byte, error) {
	return clientFS.ReadFile("client/playground.html")
}

// GetClientJS returns the playground browser script
func GetClientJS() ([]byte, error) {
	return clientFS.ReadFile("client/playground.js")
}

// GetClientCSS returns the playground stylesheet
func GetClientCSS() ([]byte, error) {
	return clientFS.ReadFile("client/playground.css")
}

// GetWelcomeMarkdown returns the built-in welcome overlay text
func GetWelcomeMarkdown() ([]byte, error) {
	return clientFS.ReadFile("client/welcome.md")
}
