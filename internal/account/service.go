package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidProfile = errors.New("invalid profile")

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

// Update validates and stores p for userID, creating the profile if needed.
func (s *Service) Update(ctx context.Context, userID string, p Profile) (*Profile, error) {
	if err := s.check(userID, &p); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Complete records the first profile for userID; later edits go through Update.
func (s *Service) Complete(ctx context.Context, userID string, p Profile) (*Profile, error) {
	if err := s.check(userID, &p); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) check(userID string, p *Profile) error {
	p.UserID = userID
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)
	p.PostalCode = strings.ToUpper(strings.ReplaceAll(p.PostalCode, " ", ""))
	p.Phone = strings.TrimSpace(p.Phone)

	if err := s.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}
