package dispatch_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"acadmin/internal/approval/dispatch"
	"acadmin/internal/approval/models"
	dErrors "acadmin/pkg/domain-errors"
)

type deletePayload struct {
	Cascade         bool `json:"cascade"`
	AllowIfChildren bool `json:"allow_delete_if_children"`
}

type RegistrySuite struct {
	suite.Suite
	ctx context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *RegistrySuite) TestPerform() {
	var (
		got    deletePayload
		target dispatch.Target
		calls  int
	)
	b := dispatch.NewBuilder()
	dispatch.Register(b, "degree", "delete", func(_ context.Context, _ dispatch.Env, t dispatch.Target, p deletePayload) error {
		calls++
		got, target = p, t
		return nil
	})
	reg, err := b.Build()
	s.Require().NoError(err)

	s.Run("decodes the typed payload and object ref", func() {
		calls = 0
		err := reg.Perform(s.ctx, dispatch.Env{}, &models.ApprovalRequest{
			ID: 9, ObjectType: "Degree", Action: "delete", ObjectID: "BTECH",
			Payload: json.RawMessage(`{"cascade": true}`),
		})
		s.Require().NoError(err)
		s.Equal(1, calls)
		s.True(got.Cascade)
		s.Equal("BTECH", target.Ref.Code())
		s.Equal(int64(9), target.ApprovalID)
	})

	s.Run("malformed payload becomes the zero payload", func() {
		calls = 0
		err := reg.Perform(s.ctx, dispatch.Env{}, &models.ApprovalRequest{
			ObjectType: "degree", Action: "delete", ObjectID: "BTECH",
			Payload: json.RawMessage(`{"cascade": "definitely"`),
		})
		s.Require().NoError(err)
		s.Equal(1, calls)
		s.False(got.Cascade)
	})

	s.Run("mistyped field is dropped and the rest is kept", func() {
		calls = 0
		err := reg.Perform(s.ctx, dispatch.Env{}, &models.ApprovalRequest{
			ObjectType: "degree", Action: "delete", ObjectID: "BTECH",
			Payload: json.RawMessage(`{"cascade": 1, "allow_delete_if_children": true}`),
		})
		s.Require().NoError(err)
		s.Equal(1, calls)
		s.False(got.Cascade, "a number is not read as a boolean flag")
		s.True(got.AllowIfChildren)
	})

	s.Run("well typed fields survive a mistyped sibling", func() {
		calls = 0
		err := reg.Perform(s.ctx, dispatch.Env{}, &models.ApprovalRequest{
			ObjectType: "degree", Action: "delete", ObjectID: "BTECH",
			Payload: json.RawMessage(`{"cascade": true, "allow_delete_if_children": "yes", "note": 3}`),
		})
		s.Require().NoError(err)
		s.Equal(1, calls)
		s.True(got.Cascade)
		s.False(got.AllowIfChildren)
	})

	s.Run("unregistered pair is refused", func() {
		err := reg.Perform(s.ctx, dispatch.Env{}, &models.ApprovalRequest{ObjectType: "degree", Action: "archive"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnregisteredHandler))
		s.Contains(err.Error(), "degree.archive")
	})
}

func (s *RegistrySuite) TestBuild() {
	s.Run("duplicate registration fails the build", func() {
		b := dispatch.NewBuilder()
		noop := func(context.Context, dispatch.Env, dispatch.Target, json.RawMessage) error { return nil }
		b.Handle("branch", "delete", noop)
		b.Handle("BRANCH", "Delete", noop)
		_, err := b.Build()
		s.Require().Error(err)
		s.Contains(err.Error(), "duplicate handler for branch.delete")
	})

	s.Run("keys are listed sorted", func() {
		b := dispatch.NewBuilder()
		noop := func(context.Context, dispatch.Env, dispatch.Target, json.RawMessage) error { return nil }
		b.Handle("subject", "delete", noop)
		b.Handle("branch", "delete", noop)
		reg, err := b.Build()
		s.Require().NoError(err)
		s.Equal([]models.ActionKey{
			models.NewActionKey("branch", "delete"),
			models.NewActionKey("subject", "delete"),
		}, reg.Keys())
		s.True(reg.Has("Branch", "DELETE"))
	})
}
