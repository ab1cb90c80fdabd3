package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	ann := &model.Contact{FirstName: "Ann", LastName: "Lee", Email: "ann@acme.io", Company: "Acme", Position: "CTO"}

	tests := []struct {
		name     string
		template string
		contact  *model.Contact
		want     string
	}{
		{"basic", "Hi {{firstName}}, from {{company}}", ann, "Hi Ann, from Acme"},
		{"full name", "Dear {{fullName}} ({{position}})", ann, "Dear Ann Lee (CTO)"},
		{"repeated tokens", "{{firstName}}{{firstName}}", ann, "AnnAnn"},
		{"unknown token kept", "Hi {{nickname}}", ann, "Hi {{nickname}}"},
		{"missing optional field", "Call {{phone}}.", ann, "Call ."},
		{"no tokens", "plain text", ann, "plain text"},
		{"value containing a token is not rescanned", "Hi {{firstName}}", &model.Contact{FirstName: "{{email}}", Email: "x@y.z"}, "Hi {{email}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.RenderTemplate(tt.template, tt.contact))
		})
	}
}

func TestRenderTemplateIsIdempotentOnOutput(t *testing.T) {
	ann := &model.Contact{FirstName: "Ann", Company: "Acme"}
	once := service.RenderTemplate("Hi {{firstName}} at {{company}} {{unknown}}", ann)
	assert.Equal(t, once, service.RenderTemplate(once, ann))
}

func TestRenderMessage(t *testing.T) {
	msg := service.RenderMessage("Hello {{firstName}}", "<p>{{company}}</p>", &model.Contact{FirstName: "Bo", Company: "Initech"})
	assert.Equal(t, "Hello Bo", msg.Subject)
	assert.Equal(t, "<p>Initech</p>", msg.Body)
}

func TestPlaceholderTokensAreRendered(t *testing.T) {
	c := &model.Contact{FirstName: "a", LastName: "b", Email: "c", Company: "d", Position: "e", Phone: "f"}
	for _, tok := range service.PlaceholderTokens() {
		assert.NotEqual(t, tok, service.RenderTemplate(tok, c), tok)
	}
}
