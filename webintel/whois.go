package webintel

import (
	"fmt"
	"strings"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// noRecordMessage is the exact contract string spec.md §6 mandates for
// domain_whois when nothing is found.
const noRecordMessage = "No WHOIS record found"

// hostingPlatformSuffixes lists well-known hosting platforms whose
// subdomains are disposable and therefore warrant a warning rather than a
// flat WHOIS miss, per spec.md §6.
var hostingPlatformSuffixes = []string{
	"vercel.app",
	"herokuapp.com",
	"github.io",
	"netlify.app",
	"pages.dev",
	"azurewebsites.net",
	"firebaseapp.com",
	"web.app",
	"glitch.me",
	"repl.co",
}

// WhoisLookup returns a human-readable WHOIS summary for domain, or
// noRecordMessage if nothing is found. Subdomains of well-known hosting
// platforms get only a disposable-subdomain warning, returned in place of a
// WHOIS query, per spec.md §6.
func WhoisLookup(domain string) (string, error) {
	if warning := hostingPlatformWarning(domain); warning != "" {
		return warning, nil
	}

	raw, err := whois.Whois(domain)
	if err != nil {
		return "", fmt.Errorf("whois lookup for %s failed: %w", domain, err)
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		if err == whoisparser.ErrNotFoundDomain {
			return noRecordMessage, nil
		}
		return "", fmt.Errorf("whois parse for %s failed: %w", domain, err)
	}

	var b strings.Builder
	if parsed.Domain != nil {
		fmt.Fprintf(&b, "domain: %s\n", parsed.Domain.Domain)
		fmt.Fprintf(&b, "created: %s\n", parsed.Domain.CreatedDate)
		fmt.Fprintf(&b, "expires: %s\n", parsed.Domain.ExpirationDate)
	}
	if parsed.Registrar != nil {
		fmt.Fprintf(&b, "registrar: %s\n", parsed.Registrar.Name)
	}
	if b.Len() == 0 {
		return noRecordMessage, nil
	}
	return b.String(), nil
}

func hostingPlatformWarning(domain string) string {
	lower := strings.ToLower(domain)
	for _, suffix := range hostingPlatformSuffixes {
		if strings.HasSuffix(lower, "."+suffix) || lower == suffix {
			return fmt.Sprintf("warning: %s is a subdomain of a well-known hosting platform (%s); WHOIS records for the parent platform, not the specific site, and the subdomain may be disposable", domain, suffix)
		}
	}
	return ""
}
