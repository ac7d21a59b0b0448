package main

import (
	"crypto/x509/pkix"
	"fmt"
	"strings"
)

// parseSubjectDN parses a Distinguished Name string into a pkix.Name,
// the teacher's subject-parsing convention carried over from its x509
// tool. Supported attributes: CN, O, OU, L, ST, C. Format:
// "CN=leaf-signer,O=MilkyWay". SPEC_FULL.md certificates carry only a
// single flat name field (spec.md §3's CertName), so callers use the
// parsed CommonName as that field; the remaining attributes are parsed
// and validated for operator familiarity but otherwise discarded.
func parseSubjectDN(dn string) (pkix.Name, error) {
	var name pkix.Name
	if strings.TrimSpace(dn) == "" {
		return name, fmt.Errorf("distinguished name cannot be empty")
	}

	for _, part := range strings.Split(dn, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, "=")
		if idx < 0 {
			return name, fmt.Errorf("invalid DN component: %q (missing '=')", part)
		}
		attrType := strings.TrimSpace(part[:idx])
		attrValue := strings.TrimSpace(part[idx+1:])
		if attrValue == "" {
			return name, fmt.Errorf("empty value for attribute %q", attrType)
		}

		switch strings.ToUpper(attrType) {
		case "CN":
			name.CommonName = attrValue
		case "O":
			name.Organization = append(name.Organization, attrValue)
		case "OU":
			name.OrganizationalUnit = append(name.OrganizationalUnit, attrValue)
		case "L":
			name.Locality = append(name.Locality, attrValue)
		case "ST":
			name.Province = append(name.Province, attrValue)
		case "C":
			name.Country = append(name.Country, attrValue)
		default:
			return name, fmt.Errorf("unknown attribute type %q", attrType)
		}
	}

	if name.CommonName == "" {
		return name, fmt.Errorf("subject DN must set CN")
	}
	return name, nil
}

// certNameFromSubject resolves the certificate name a cert subcommand
// stores: --subject's CN if given, else the plain --name flag. Requiring
// exactly one of the two keeps the CLI's two naming conventions from
// silently shadowing each other.
func certNameFromSubject(name, subject string) (string, error) {
	if subject != "" {
		if name != "" {
			return "", fmt.Errorf("--name and --subject are mutually exclusive")
		}
		parsed, err := parseSubjectDN(subject)
		if err != nil {
			return "", fmt.Errorf("invalid --subject: %w", err)
		}
		return parsed.CommonName, nil
	}
	if name == "" {
		return "", fmt.Errorf("--name or --subject is required")
	}
	return name, nil
}
