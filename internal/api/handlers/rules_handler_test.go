package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRules(t *testing.T) {
	app := fiber.New()
	app.Get("/api/rules", NewRulesHandler(testRuleStore(t)).ListRules)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Rules []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Importance  string `json:"importance"`
		} `json:"rules"`
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Rules, 2)
	assert.Equal(t, "rule_001", body.Rules[0].ID)
	assert.Equal(t, "critical", body.Rules[0].Importance)
	assert.Equal(t, "rule_002", body.Rules[1].ID)
}
