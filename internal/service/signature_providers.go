package service

import (
	"context"
	"fmt"

	"github.com/arkivet/document-api/internal/models"
)

// Provider signing endpoints. The request id is appended as the flow
// reference; everything past the returned URL is the provider's own
// protocol.
var providerEndpoints = map[models.SignatureProvider]string{
	models.ProviderBankID:    "https://signering.bankid.no/sign",
	models.ProviderIDPorten:  "https://signering.idporten.no/sign",
	models.ProviderDocuSign:  "https://eu.docusign.net/signing",
	models.ProviderAdobeSign: "https://secure.eu1.adobesign.com/public/sign",
}

// RegisterEnabledDispatchers wires the configured providers onto the
// service. Unknown provider names are skipped.
func RegisterEnabledDispatchers(svc *SignatureService, enabled []string) {
	for _, name := range enabled {
		provider := models.SignatureProvider(name)
		endpoint, ok := providerEndpoints[provider]
		if !ok {
			continue
		}
		svc.RegisterDispatcher(provider, redirectDispatcher(endpoint))
	}
}

// redirectDispatcher builds the provider signing URL for a request.
func redirectDispatcher(endpoint string) SignatureDispatcher {
	return SignatureDispatcherFunc(func(_ context.Context, req *models.SignatureRequest) (string, error) {
		return fmt.Sprintf("%s?request=%s&level=%s", endpoint, req.ID, req.Level), nil
	})
}
