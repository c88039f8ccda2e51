package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perspective-gateway/analyzer/domain"
	"perspective-gateway/analyzer/infra"
)

func TestFakeHandler_ScoresEveryRequestedAttribute(t *testing.T) {
	srv := httptest.NewServer(newFakeHandler(0, logr.Discard()))
	defer srv.Close()

	req, err := domain.NewRequestBuilder("hello there").
		Attribute(domain.Toxicity, domain.AttributeOptions{}).
		Attribute(domain.Insult, domain.AttributeOptions{}).
		ClientToken("tok").
		Build()
	require.NoError(t, err)

	c := infra.NewHTTPCaller("k", infra.WithEndpoint(srv.URL+"/v1alpha1/comments:analyze"))
	res, err := c.Call(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, res.AttributeScores, 2)
	assert.Equal(t, "tok", res.ClientToken)
	assert.Equal(t, []domain.LanguageCode{domain.English}, res.Languages)

	again, err := c.Call(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, res.AttributeScores, again.AttributeScores, "scores are deterministic")
}

func TestFakeHandler_StructuredErrors(t *testing.T) {
	srv := httptest.NewServer(newFakeHandler(time.Millisecond, logr.Discard()))
	defer srv.Close()

	endpoint := srv.URL + "/v1alpha1/comments:analyze"
	empty := domain.Request{
		Comment:             domain.Comment{Text: "  "},
		RequestedAttributes: map[domain.Attribute]domain.AttributeOptions{domain.Toxicity: {}},
	}

	_, err := infra.NewHTTPCaller("k", infra.WithEndpoint(endpoint)).Call(context.Background(), empty)
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 400, re.Code)
	assert.Equal(t, "INVALID_ARGUMENT", re.Status)

	empty.Comment.Text = "fine"
	_, err = infra.NewHTTPCaller("", infra.WithEndpoint(endpoint)).Call(context.Background(), empty)
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 403, re.Code)
}
