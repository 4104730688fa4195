package handler

import (
	"strings"

	"blocknexus/internal/kyc"
)

// UpdateKYCStatusRequest is the body of PUT /users/{wallet}/kyc-status.
type UpdateKYCStatusRequest struct {
	Status string `json:"status"`
}

// Parse validates the requested status.
func (r UpdateKYCStatusRequest) Parse() (kyc.KYCStatus, error) {
	return kyc.ParseKYCStatus(strings.TrimSpace(r.Status))
}
