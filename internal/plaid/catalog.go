package plaid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Veraticus/plaid-connect/internal/model"
)

// InstitutionList is the result of a catalog listing. Response is nil when
// nothing decodable came back; Institutions is then empty.
type InstitutionList struct {
	Response     *ResponseMeta
	Institutions []model.Institution
}

// InstitutionResult is the result of a single institution lookup.
type InstitutionResult struct {
	Institution *model.Institution
	Response    *ResponseMeta
}

// ListInstitutions fetches Plaid's institution catalog. A failed or
// undecodable response yields zero institutions rather than an error.
func (c *Client) ListInstitutions(ctx context.Context) InstitutionList {
	body, meta, err := c.exchange(ctx, request{
		method:   http.MethodGet,
		endpoint: "institutions",
		url:      c.env.InstitutionsURL(),
	})
	if err != nil {
		return InstitutionList{Institutions: []model.Institution{}}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		c.logger.Debug("Institution catalog not decodable", "error", err)
		return InstitutionList{Institutions: []model.Institution{}}
	}

	return InstitutionList{
		Institutions: c.decodeInstitutions(entries, model.SourcePlaid),
		Response:     meta,
	}
}

// ListIntuitInstitutions fetches one page of the long-tail catalog. count and
// skip are passed through unvalidated.
func (c *Client) ListIntuitInstitutions(ctx context.Context, count, skip int) InstitutionList {
	payload := c.credentials()
	payload["count"] = strconv.Itoa(count)
	payload["offset"] = strconv.Itoa(skip)

	body, meta, err := c.exchange(ctx, request{
		method:   http.MethodPost,
		endpoint: "institutions_longtail",
		url:      c.env.IntuitURL(),
		body:     payload,
	})
	if err != nil {
		return InstitutionList{Institutions: []model.Institution{}}
	}

	var page struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &page); err != nil || page.Results == nil {
		c.logger.Debug("Long-tail catalog not decodable", "error", err)
		return InstitutionList{Institutions: []model.Institution{}}
	}

	return InstitutionList{
		Institutions: c.decodeInstitutions(page.Results, model.SourceIntuit),
		Response:     meta,
	}
}

// GetInstitution fetches a single Plaid institution by id. Institution is nil
// when the body cannot be decoded; Response is kept whenever the server answered.
func (c *Client) GetInstitution(ctx context.Context, id string) InstitutionResult {
	body, meta, err := c.exchange(ctx, request{
		method:   http.MethodGet,
		endpoint: "institution",
		url:      c.env.InstitutionsURL() + "/" + url.PathEscape(id),
	})
	if err != nil {
		return InstitutionResult{Response: meta}
	}

	inst, err := model.DecodeInstitution(body, model.SourcePlaid)
	if err != nil {
		c.logger.Debug("Institution not decodable", "institution_id", id, "error", err)
		return InstitutionResult{Response: meta}
	}

	return InstitutionResult{Institution: &inst, Response: meta}
}

// decodeInstitutions keeps every entry that decodes, in order.
func (c *Client) decodeInstitutions(entries []json.RawMessage, source model.InstitutionSource) []model.Institution {
	institutions := make([]model.Institution, 0, len(entries))
	for i, entry := range entries {
		inst, err := model.DecodeInstitution(entry, source)
		if err != nil {
			c.logger.Debug("Skipping institution entry", "source", source, "index", i, "error", err)
			continue
		}
		institutions = append(institutions, inst)
	}
	return institutions
}
