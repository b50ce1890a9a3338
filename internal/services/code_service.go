package services

import (
	"context"
	"time"

	"github.com/marcorisi/discount-codes/internal/models"
	"github.com/marcorisi/discount-codes/internal/repository"
	"github.com/marcorisi/discount-codes/internal/validator"
)

// CodeInput is a discount code as entered by an operator.
type CodeInput struct {
	Code          string `json:"code" validate:"required,max=100"`
	StoreName     string `json:"store" validate:"required,max=200"`
	StoreURL      string `json:"url" validate:"omitempty,url,max=500"`
	DiscountValue string `json:"value" validate:"max=50"`
	ExpiryDate    string `json:"expiry" validate:"isodate"`
	Notes         string `json:"notes"`
	IsUsed        bool   `json:"used"`
}

// CodeService seeds discount codes; the share subsystem only reads them.
type CodeService struct {
	codeRepo repository.CodeRepository
}

func NewCodeService(codeRepo repository.CodeRepository) *CodeService {
	return &CodeService{codeRepo: codeRepo}
}

// AddCode validates in and stores it for owner (may be nil).
func (s *CodeService) AddCode(ctx context.Context, in CodeInput, owner *models.User) (*models.DiscountCode, error) {
	if err := validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	code := &models.DiscountCode{
		Code:          in.Code,
		StoreName:     in.StoreName,
		StoreURL:      optional(in.StoreURL),
		DiscountValue: optional(in.DiscountValue),
		Notes:         optional(in.Notes),
		IsUsed:        in.IsUsed,
	}
	if in.ExpiryDate != "" {
		// already checked by the isodate rule
		d, _ := time.Parse("2006-01-02", in.ExpiryDate)
		code.ExpiryDate = &d
	}
	if owner != nil {
		id := owner.ID
		code.UserID = &id
	}
	if err := s.codeRepo.CreateCode(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
