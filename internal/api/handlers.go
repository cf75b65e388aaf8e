// internal/api/handlers.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"scout-workers/internal/common/errors"
	enrichcompany "scout-workers/internal/workers/enrichment/enrich-company"
	fetchlivefeed "scout-workers/internal/workers/intelligence/fetch-live-feed"
	scoutchat "scout-workers/internal/workers/intelligence/scout-chat"
	calculatefitscore "scout-workers/internal/workers/scoring/calculate-fit-score"

	"github.com/gin-gonic/gin"
)

type Enricher interface {
	Execute(ctx context.Context, input *enrichcompany.Input) (*enrichcompany.Output, error)
}

type Chatter interface {
	Execute(ctx context.Context, input *scoutchat.Input) (*scoutchat.Output, error)
}

type FeedFetcher interface {
	Execute(ctx context.Context, input *fetchlivefeed.Input) (*fetchlivefeed.Output, error)
}

type Scorer interface {
	Execute(ctx context.Context, input *calculatefitscore.Input) (*calculatefitscore.Output, error)
}

// Handlers are the worker handlers the API exposes. The same Execute methods
// back the Zeebe task types.
type Handlers struct {
	Enrich   Enricher
	Chat     Chatter
	LiveFeed FeedFetcher
	Score    Scorer
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func (h Handlers) enrich(c *gin.Context) {
	var input enrichcompany.Input
	if !bindJSON(c, &input) {
		return
	}
	output, err := h.Enrich.Execute(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h Handlers) chat(c *gin.Context) {
	var input scoutchat.Input
	if !bindJSON(c, &input) {
		return
	}
	output, err := h.Chat.Execute(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h Handlers) liveFeed(c *gin.Context) {
	input := fetchlivefeed.Input{Companies: splitList(c.Query("companies"))}

	var err error
	if input.PerCompany, err = queryInt(c, "perCompany"); err != nil {
		abortWithError(c, err)
		return
	}
	if input.Limit, err = queryInt(c, "limit"); err != nil {
		abortWithError(c, err)
		return
	}

	output, err := h.LiveFeed.Execute(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func (h Handlers) score(c *gin.Context) {
	var input calculatefitscore.Input
	if !bindJSON(c, &input) {
		return
	}
	output, err := h.Score.Execute(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, output)
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortWithError(c, errors.NewInvalidInputError("request body: "+err.Error()))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewInvalidInputError(key + " must be an integer")
	}
	return n, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func abortWithError(c *gin.Context, err error) {
	stdErr := errors.AsStandardError(err)
	_ = c.Error(err)

	resp := ErrorResponse{Error: stdErr.Message, Code: string(stdErr.Code)}
	if stdErr.Code != errors.ErrCodeInternal {
		resp.Details = stdErr.Details
	}
	c.AbortWithStatusJSON(errors.HTTPStatus(stdErr.Code), resp)
}
