package handler

import "github.com/actuallystonmai/viewing-service/internal/domain"

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type LegacyPageResponse struct {
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Items []domain.Viewing `json:"items"`
}

type CirclesResponse struct {
	Items []domain.Circle `json:"items"`
}
