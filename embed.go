package showroom

import "embed"

// TemplateFS contains the embedded HTML templates used for rendering the chat
// page. These templates are organized in a directory structure that separates
// layouts, pages, and partial views.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the embedded static assets such as the shell script,
// stylesheet, and the avatar image pair.
//
//go:embed static/*
var StaticFS embed.FS
