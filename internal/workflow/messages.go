package workflow

import (
	"strings"

	"github.com/Bibleyou/RemoveBG-Pro/internal/remote"
)

// Messages is the user-facing text for one locale.
// RemoteRejected has no entry: the provider's detail is shown as-is.
type Messages struct {
	Progress      string
	Unconfigured  string
	Unauthorized  string
	QuotaExceeded string
	Rejected      string // fallback when a rejection carries no detail
	Network       string
}

var catalogs = map[string]Messages{
	"en": {
		Progress:      "Removing the background...",
		Unconfigured:  "No API key is configured. Set API_KEY in the deployment environment and restart the service.",
		Unauthorized:  "The API key was rejected. It may be invalid or expired; check it in the deployment settings.",
		QuotaExceeded: "The API account has run out of credits. Top it up and try again.",
		Rejected:      "The image could not be processed.",
		Network:       "Could not reach the image service. Check your connection and try again.",
	},
	"pt-BR": {
		Progress:      "Removendo fundo com precisão...",
		Unconfigured:  "API_KEY não configurada nas variáveis de ambiente. Configure a chave e reinicie o serviço.",
		Unauthorized:  "Sua chave de API parece inválida ou expirada. Verifique-a nas configurações do deploy.",
		QuotaExceeded: "Sua conta da API está sem créditos.",
		Rejected:      "Erro ao remover fundo.",
		Network:       "Falha na conexão com o serviço de imagens. Tente novamente.",
	},
}

// MessagesFor returns the catalog for locale, matching case-insensitively
// and falling back to English.
func MessagesFor(locale string) Messages {
	for name, m := range catalogs {
		if strings.EqualFold(name, locale) {
			return m
		}
	}
	return catalogs["en"]
}

// For maps an adapter error to exactly one user-facing message.
// Only RemoteRejected passes provider text through; everything else,
// including errors that never came from an adapter, gets a fixed message
// so internal error text doesn't leak to the user.
func (m Messages) For(err error) string {
	switch remote.KindOf(err) {
	case remote.KindUnconfigured:
		return m.Unconfigured
	case remote.KindUnauthorized:
		return m.Unauthorized
	case remote.KindQuotaExceeded:
		return m.QuotaExceeded
	case remote.KindRemoteRejected:
		if detail := remote.DetailOf(err); detail != "" {
			return detail
		}
		return m.Rejected
	default:
		return m.Network
	}
}
