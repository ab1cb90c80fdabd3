package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

func newTemplateService(f *fixture) *service.TemplateService {
	return &service.TemplateService{TemplateRepo: f.templates, ContactRepo: f.contacts, DeliveryRepo: f.logs}
}

func TestTemplateLockedOnceUsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTemplateService(f)
	ids := f.addContacts(t, 1)

	tpl, err := svc.CreateTemplate(ctx, service.TemplateInput{Name: "Intro", Subject: "Hi {{firstName}}", Body: "Hello"})
	require.NoError(t, err)

	tpl, err = svc.UpdateTemplate(ctx, tpl.ID, service.TemplateInput{Name: "Intro", Subject: "Hey {{firstName}}", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hey {{firstName}}", tpl.Subject)

	_, err = f.scheduler.SendEmail(ctx, service.SendEmailRequest{ContactID: ids[0], TemplateID: tpl.ID, Subject: tpl.Subject, Body: tpl.Body})
	require.NoError(t, err)

	_, err = svc.UpdateTemplate(ctx, tpl.ID, service.TemplateInput{Name: "Intro", Subject: "Changed", Body: "Hello"})
	assert.ErrorIs(t, err, appErrors.ErrTemplateLocked)

	stored, err := svc.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hey {{firstName}}", stored.Subject)
}

func TestTemplateValidation(t *testing.T) {
	svc := newTemplateService(newFixture(t))
	_, err := svc.CreateTemplate(context.Background(), service.TemplateInput{Name: "x", Subject: "", Body: "b"})
	assert.True(t, appErrors.IsValidation(err))
}

func TestRenderPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTemplateService(f)
	ids := f.addContacts(t, 1)

	tpl, err := svc.CreateTemplate(ctx, service.TemplateInput{Name: "Intro", Subject: "Hi {{firstName}}", Body: "From {{company}}"})
	require.NoError(t, err)

	msg, err := svc.RenderPreview(ctx, service.PreviewRequest{TemplateID: tpl.ID, ContactID: ids[0]})
	require.NoError(t, err)
	assert.Equal(t, "Hi c0", msg.Subject)
	assert.Equal(t, "From Acme", msg.Body)

	msg, err = svc.RenderPreview(ctx, service.PreviewRequest{Subject: "Hi {{firstName}}", Contact: &model.Contact{FirstName: "Ann"}})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann", msg.Subject)

	_, err = svc.RenderPreview(ctx, service.PreviewRequest{ContactID: ids[0]})
	assert.True(t, appErrors.IsValidation(err))
}
