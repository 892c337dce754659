package discovery

import (
	"context"
	"time"
)

// Engine downloads a recipe by actually running it. Implementations live
// outside this module; recipe mode is only available when one is supplied.
type Engine interface {
	Download(ctx context.Context, recipeUID string, src []byte) ([]EngineFeed, error)
}

// EngineFeed is one feed produced by an engine run.
type EngineFeed struct {
	Title    string
	Articles []EngineArticle
}

// EngineArticle is an article produced by an engine run. HTML is the
// rendered page when the engine downloaded it; Summary is used otherwise.
type EngineArticle struct {
	Title     string
	URL       string
	GUID      string
	Author    string
	Summary   string
	Published *time.Time
	HTML      string
}
