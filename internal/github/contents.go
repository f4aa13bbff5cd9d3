package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alabrestoise/siteapi/internal/apperrors"
)

// File is a file fetched through the Contents API.
type File struct {
	Content []byte
	// SHA is the git blob hash GitHub uses as the write precondition.
	SHA string
}

// CommitAuthor is the synthetic identity attributed to content commits.
type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// contentsResponse is the Contents API representation of a file.
type contentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

// putContentsRequest is the body of a Contents API write.
type putContentsRequest struct {
	Message   string       `json:"message"`
	Content   string       `json:"content"`
	Branch    string       `json:"branch,omitempty"`
	SHA       string       `json:"sha,omitempty"`
	Committer CommitAuthor `json:"committer"`
}

// putContentsResponse is the relevant slice of a Contents API write response.
type putContentsResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// GetContents fetches a file and its blob sha from the repository.
// A missing file surfaces as a KindNotFound error; any other non-2xx
// response is KindUpstream.
func (c *Client) GetContents(ctx context.Context, repo, branch, path string) (*File, error) {
	endpoint := fmt.Sprintf("/repos/%s/contents/%s", repo, escapePath(path))
	if branch != "" {
		endpoint += "?ref=" + url.QueryEscape(branch)
	}

	var resp contentsResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "file not found: "+path, err)
		}
		return nil, apperrors.Wrap(apperrors.KindUpstream, "get contents "+path, err)
	}

	if resp.Type != "file" {
		return nil, apperrors.Newf(apperrors.KindUpstream, "path %s is a %s, not a file", path, resp.Type)
	}

	// GitHub wraps base64 content with newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "decode contents "+path, err)
	}

	return &File{Content: raw, SHA: resp.SHA}, nil
}

// PutContents creates or updates a file, committing on the given branch.
// When sha is non-empty it is sent as the write precondition; GitHub rejects
// a stale sha with 409 (and a missing sha for an existing file with 422),
// both of which surface as KindConflict so the caller never silently
// overwrites. The new blob sha is returned on success.
func (c *Client) PutContents(
	ctx context.Context,
	repo, branch, path string,
	content []byte,
	sha, message string,
	author CommitAuthor,
) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/contents/%s", repo, escapePath(path))

	req := putContentsRequest{
		Message:   message,
		Content:   base64.StdEncoding.EncodeToString(content),
		Branch:    branch,
		SHA:       sha,
		Committer: author,
	}

	var resp putContentsResponse
	if err := c.do(ctx, http.MethodPut, endpoint, &req, &resp); err != nil {
		switch statusOf(err) {
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return "", apperrors.Wrap(apperrors.KindConflict, "revision precondition failed for "+path, err)
		default:
			return "", apperrors.Wrap(apperrors.KindUpstream, "put contents "+path, err)
		}
	}

	return resp.Content.SHA, nil
}

// statusOf extracts the HTTP status from a client error, or 0.
func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
