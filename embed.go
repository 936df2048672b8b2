package staticpress

import "embed"

// EmbeddedAssets contains static assets shipped with the framework
// (style.css), served under /public.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
