package service

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
)

// ParticipantResolver turns raw profile and professional rows into display-ready participants.
type ParticipantResolver struct {
	profiles repository.ProfileRepository
}

func NewParticipantResolver(profiles repository.ProfileRepository) *ParticipantResolver {
	return &ParticipantResolver{profiles: profiles}
}

// Resolve looks up every uid with one profile query and one professional query.
// A uid without a professional record whose name cannot be derived maps to nil.
func (r *ParticipantResolver) Resolve(ctx context.Context, uids []string) (map[string]*model.Participant, error) {
	ids := lo.Uniq(lo.Compact(uids))
	out := make(map[string]*model.Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	profiles, err := r.profiles.FindProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	pros, err := r.profiles.FindProfessionals(ctx, ids)
	if err != nil {
		return nil, err
	}
	profileByUID := lo.KeyBy(profiles, func(p model.Profile) string { return p.UID })
	proByUID := lo.KeyBy(pros, func(p model.Professional) string { return p.UID })

	for _, id := range ids {
		var (
			profile *model.Profile
			pro     *model.Professional
		)
		if p, ok := profileByUID[id]; ok {
			profile = &p
		}
		if p, ok := proByUID[id]; ok {
			pro = &p
		}
		out[id] = describeParticipant(id, profile, pro)
	}
	return out, nil
}

func describeParticipant(uid string, profile *model.Profile, pro *model.Professional) *model.Participant {
	if pro != nil {
		// a professional record always yields a descriptor, even without a usable name
		name := strings.TrimSpace(pro.BusinessName)
		if name == "" {
			name = profileName(profile)
		}
		id := pro.ID
		return &model.Participant{
			UserID:           uid,
			Name:             name,
			IsProfessional:   true,
			ProfessionalArea: pro.ServiceType,
			IsVerified:       pro.IsVerified,
			ProfessionalID:   &id,
		}
	}
	name := profileName(profile)
	if name == "" {
		return nil
	}
	return &model.Participant{UserID: uid, Name: name}
}

func profileName(p *model.Profile) string {
	if p == nil {
		return ""
	}
	if p.DisplayName != nil {
		if name := strings.TrimSpace(*p.DisplayName); name != "" {
			return name
		}
	}
	return NameFromEmail(p.Email)
}

// NameFromEmail derives "John Smith" from "john.smith@example.com" or "john_smith@example.com".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || unicode.IsSpace(r)
	})
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + w[size:]
	}
	return strings.Join(words, " ")
}

// SenderTypeFor labels a conversation by its other participant. A professional record always wins
// over whatever the last message's type suggests.
func SenderTypeFor(p *model.Participant) model.SenderType {
	if p != nil && p.IsProfessional {
		return model.SenderTypeProfessional
	}
	return model.SenderTypeBuyer
}
