package redact

import "regexp"

// Evidence excerpts come straight out of scanned source, which is exactly
// where credentials live. Everything that leaves the pipeline (reports,
// history rows, LLM prompts) passes through Mask first.
var (
	privateKeyBlock = regexp.MustCompile(`-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z0-9 ]*PRIVATE KEY-----`)
	bearerToken     = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=-]{8,}`)
	secretAssign    = regexp.MustCompile(`(?i)\b([\w-]*(?:api[_-]?key|access[_-]?key|secret|token|password|passwd|pwd)[\w-]*)(["']?\s*[:=]\s*)(["']?)([^"'\s;]{6,})(["']?)`)
	connStringCred  = regexp.MustCompile(`(?i)\b(password|pwd)(\s*=\s*)([^;"'\s]{2,})`)
	urlUserinfo     = regexp.MustCompile(`(?i)://([^:/@\s"']+):([^@\s"']+)@`)
	awsAccessKey    = regexp.MustCompile(`\b(A3T|AKIA|ASIA|AGPA|AIDA|ANPA|ANVA|AROA|AIPA)[0-9A-Z]{16}\b`)
	githubToken     = regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`)
	slackToken      = regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)
)

// Mask replaces recognizable secret material with placeholders.
func Mask(in string) string {
	out := in
	out = privateKeyBlock.ReplaceAllString(out, "[REDACTED PRIVATE KEY]")
	out = bearerToken.ReplaceAllString(out, "Bearer [REDACTED]")
	out = secretAssign.ReplaceAllString(out, `${1}${2}${3}[REDACTED]${5}`)
	out = connStringCred.ReplaceAllString(out, `${1}${2}[REDACTED]`)
	out = urlUserinfo.ReplaceAllString(out, `://${1}:[REDACTED]@`)
	out = awsAccessKey.ReplaceAllString(out, "[REDACTED_AWS_KEY]")
	out = githubToken.ReplaceAllString(out, "[REDACTED_GITHUB_TOKEN]")
	out = slackToken.ReplaceAllString(out, "[REDACTED_SLACK_TOKEN]")
	return out
}

// MaskAll returns a masked copy of in. Nil stays nil.
func MaskAll(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, Mask(s))
	}
	return out
}
