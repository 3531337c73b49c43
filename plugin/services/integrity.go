package services

import (
	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// IntegrityService decides how strictly plugin integrity is enforced.
// Digest pins are always enforced when present; signature verification is
// policy-controlled.
type IntegrityService struct {
	requireSigning bool
}

// NewIntegrityService creates an integrity service.
func NewIntegrityService(requireSigning bool) *IntegrityService {
	return &IntegrityService{requireSigning: requireSigning}
}

// VerifyDigest checks the plugin against an expected digest.
func (s *IntegrityService) VerifyDigest(plugin *entities.Plugin, expected values.Digest) error {
	return plugin.VerifyIntegrity(expected)
}

// ShouldVerifySignature reports whether signature verification is required.
func (s *IntegrityService) ShouldVerifySignature() bool {
	return s.requireSigning
}
