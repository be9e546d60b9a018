package service

import (
	"context"
	"testing"

	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dot separated", "john.smith@example.com", "John Smith"},
		{"underscore separated", "mary_jane_doe@example.com", "Mary Jane Doe"},
		{"mixed separators", "a.b_c@example.com", "A B C"},
		{"single word", "contact@example.com", "Contact"},
		{"keeps inner case", "mcDonald.ole@example.com", "McDonald Ole"},
		{"empty local part", "@example.com", ""},
		{"only separators", "._@example.com", ""},
		{"empty", "", ""},
		{"unicode", "élodie.martin@example.com", "Élodie Martin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NameFromEmail(tt.input); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}

type countingProfiles struct {
	repository.ProfileRepository
	profileCalls      int
	professionalCalls int
}

func (c *countingProfiles) FindProfiles(ctx context.Context, uids []string) ([]model.Profile, error) {
	c.profileCalls++
	return c.ProfileRepository.FindProfiles(ctx, uids)
}

func (c *countingProfiles) FindProfessionals(ctx context.Context, uids []string) ([]model.Professional, error) {
	c.professionalCalls++
	return c.ProfileRepository.FindProfessionals(ctx, uids)
}

func TestParticipantResolver_Resolve(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	env.seedProfiles(t)
	ctx := context.Background()
	profiles := repository.NewProfileRepository(env.db)
	req.NoError(profiles.UpsertProfile(ctx, &model.Profile{UID: "nameless", Email: ""}))
	req.NoError(profiles.UpsertProfessional(ctx, &model.Professional{UID: "unnamed-pro", ServiceType: "inspector"}))

	counting := &countingProfiles{ProfileRepository: profiles}
	resolver := NewParticipantResolver(counting)

	got, err := resolver.Resolve(ctx, []string{buyerUID, sellerUID, proUID, "nameless", "unnamed-pro", "ghost", sellerUID, ""})
	req.NoError(err)
	req.Equal(1, counting.profileCalls)
	req.Equal(1, counting.professionalCalls)

	req.Equal("Alice Buyer", got[buyerUID].Name)
	req.False(got[buyerUID].IsProfessional)

	req.Equal("Bob Seller", got[sellerUID].Name)

	pro := got[proUID]
	req.NotNil(pro)
	req.Equal("Carol Surveys", pro.Name)
	req.True(pro.IsProfessional)
	req.True(pro.IsVerified)
	req.Equal("surveyor", pro.ProfessionalArea)
	req.NotNil(pro.ProfessionalID)

	unnamed := got["unnamed-pro"]
	req.NotNil(unnamed, "a professional record always yields a descriptor")
	req.True(unnamed.IsProfessional)
	req.Empty(unnamed.Name)
	req.Equal("inspector", unnamed.ProfessionalArea)
	req.Equal(model.SenderTypeProfessional, SenderTypeFor(unnamed))

	req.Contains(got, "nameless")
	req.Nil(got["nameless"])
	req.Nil(got["ghost"])
	req.NotContains(got, "")
}

func TestParticipantResolver_EmptyInput(t *testing.T) {
	counting := &countingProfiles{}
	got, err := NewParticipantResolver(counting).Resolve(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Zero(t, counting.profileCalls)
}

func TestSenderTypeFor(t *testing.T) {
	require.Equal(t, model.SenderTypeBuyer, SenderTypeFor(nil))
	require.Equal(t, model.SenderTypeBuyer, SenderTypeFor(&model.Participant{Name: "Alice"}))
	require.Equal(t, model.SenderTypeProfessional, SenderTypeFor(&model.Participant{Name: "Carol", IsProfessional: true}))
	require.Equal(t, model.SenderTypeProfessional, SenderTypeFor(&model.Participant{IsProfessional: true}))
}

func TestConversationStore_UnnamedProfessionalIsLabelled(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	profiles := repository.NewProfileRepository(env.db)
	req.NoError(profiles.UpsertProfessional(context.Background(), &model.Professional{UID: "unnamed-pro"}))

	cv := env.openConversation(t, 0, "unnamed-pro", "need a quote")

	d := findDetails(env.fetch(t, buyerUID).Active, cv.ID)
	req.NotNil(d)
	req.NotNil(d.OtherParticipant)
	req.Equal(model.SenderTypeProfessional, d.SenderType)
}
