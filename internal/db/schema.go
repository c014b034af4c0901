package db

import _ "embed"

//go:embed schema.sql
var Schema string

// item stages
const (
	STAGE_SEARCH   = "search"
	STAGE_DOWNLOAD = "download"
	STAGE_PARSE    = "parse"
	STAGE_UPLOAD   = "upload"
)
