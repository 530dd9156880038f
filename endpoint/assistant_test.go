package endpoint_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/fernanda-avila/MIndCare2025/assistant"
	"github.com/fernanda-avila/MIndCare2025/endpoint"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply + ": " + prompt, nil
}

func withAssistant(a *assistant.Assistant) ServerOption {
	return func(o *endpoint.RouteOptions) { o.Assistant = a }
}

func TestAskAssistantStoresExchange(t *testing.T) {
	failing := &stubProvider{name: "openai", err: errors.New("quota exceeded")}
	working := &stubProvider{name: "google", reply: "Respire fundo"}
	r, _ := SetupTestServer(t, withAssistant(assistant.New(failing, working)))
	token, _ := CreateAndLoginUser(t, r, SignupCreds{Name: "Maria", Email: "maria@example.com", Password: "secret123"})

	rr := doJSON(t, r, http.MethodPost, "/assistant", map[string]string{"prompt": "  estou ansiosa  "}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var reply assistant.Reply
	require.NoError(t, json.Unmarshal(ParseAPIResp(t, rr).Data, &reply))
	assert.Equal(t, "google", reply.Provider)
	assert.Equal(t, "Respire fundo: estou ansiosa", reply.Text)
	assert.Equal(t, 1, failing.calls)

	msgs := listChat(t, r, token, "")
	require.Len(t, msgs, 2)
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, "estou ansiosa", msgs[0].Text)
	assert.Equal(t, model.SenderBot, msgs[1].Sender)
	assert.Equal(t, reply.Text, msgs[1].Text)
}

func TestAskAssistantWithoutProvidersUsesMock(t *testing.T) {
	r, _ := SetupTestServer(t)
	token, _ := CreateAndLoginUser(t, r, SignupCreds{Name: "Maria", Email: "maria@example.com", Password: "secret123"})

	rr := doJSON(t, r, http.MethodPost, "/assistant", map[string]string{"prompt": "olá"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var reply assistant.Reply
	require.NoError(t, json.Unmarshal(ParseAPIResp(t, rr).Data, &reply))
	assert.Equal(t, assistant.MockProvider, reply.Provider)
	assert.Contains(t, reply.Text, "olá")
}

func TestAskAssistantRejectsBadPrompts(t *testing.T) {
	r, _ := SetupTestServer(t)
	token, _ := CreateAndLoginUser(t, r, SignupCreds{Name: "Maria", Email: "maria@example.com", Password: "secret123"})

	rr := doJSON(t, r, http.MethodPost, "/assistant", map[string]string{"prompt": "   "}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, r, http.MethodPost, "/assistant", map[string]string{"prompt": strings.Repeat("a", 4001)}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, r, http.MethodPost, "/assistant", map[string]string{"prompt": "oi"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
