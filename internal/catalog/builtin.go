package catalog

import "github.com/KumVivek/copilot-instruction-agent/internal/model"

// Builtin returns the shipped catalog for a language. User catalogs with the
// same language key replace the builtin wholesale.
func Builtin(language string) (Catalog, bool) {
	switch language {
	case "dotnet":
		return Normalize(builtinDotnet()), true
	default:
		return Catalog{}, false
	}
}

func builtinDotnet() Catalog {
	return Catalog{
		Language: "dotnet",
		Patterns: []Pattern{
			{
				ID:          "DN-001",
				Name:        "Async void method",
				Type:        model.KindAntiPattern,
				Severity:    model.SeverityHigh,
				Category:    "Reliability",
				Description: "async void methods cannot be awaited and their exceptions crash the process.",
				Regex:       `async\s+void\s+\w+\s*\(`,
				Constraint:  "Use async Task instead of async void for all asynchronous methods",
			},
			{
				ID:          "DN-002",
				Name:        "Blocking on async code",
				Type:        model.KindAntiPattern,
				Severity:    model.SeverityHigh,
				Category:    "Reliability",
				Description: "Calling .Result or .Wait() on a task risks deadlocks and starves the thread pool.",
				Regex:       `\.Result\b|\.Wait\(\)`,
				Constraint:  "Never block on async code with .Result or .Wait(); await it end to end",
			},
			{
				ID:          "DN-003",
				Name:        "Empty catch block",
				Type:        model.KindAntiPattern,
				Severity:    model.SeverityMedium,
				Category:    "Code Quality",
				Description: "Swallowed exceptions hide failures from operators and tests.",
				Regex:       `catch\s*(\([^)]*\))?\s*\{\s*\}`,
				Constraint:  "Never swallow exceptions with empty catch blocks; log or rethrow",
			},
			{
				ID:          "DN-004",
				Name:        "SQL built by string concatenation",
				Type:        model.KindAntiPattern,
				Severity:    model.SeverityCritical,
				Category:    "Security",
				Description: "Concatenating values into SQL text is the canonical injection vector.",
				Regex:       `(SqlCommand|ExecuteSqlRaw|CommandText)[^\n]*"\s*\+`,
				Constraint:  "Use parameterized queries; never concatenate input into SQL text",
			},
			{
				ID:          "DN-005",
				Name:        "Credential inside connection string literal",
				Type:        model.KindAntiPattern,
				Severity:    model.SeverityHigh,
				Category:    "Security",
				Description: "Connection strings with embedded passwords in source leak through VCS history.",
				Regex:       `(?i)(server|data source)=[^\n"]*(password|pwd)\s*=`,
				Constraint:  "Keep connection strings and credentials in configuration providers, not source",
			},
			{
				ID:          "DN-006",
				Name:        "HttpClient instantiated per use",
				Type:        model.KindAntiPattern,
				Severity:    model.SeverityMedium,
				Category:    "Performance",
				Description: "Per-request HttpClient instances exhaust sockets under load.",
				Regex:       `new\s+HttpClient\s*\(`,
				Constraint:  "Reuse HttpClient through IHttpClientFactory instead of constructing it per request",
			},
			{
				ID:          "DN-007",
				Name:        "Thread.Sleep in request path",
				Type:        model.KindAntiPattern,
				Severity:    model.SeverityLow,
				Category:    "Performance",
				Description: "Thread.Sleep pins a thread; asynchronous waits should yield it.",
				Regex:       `Thread\.Sleep\s*\(`,
				Constraint:  "Use Task.Delay instead of Thread.Sleep in asynchronous code",
			},
			{
				ID:          "DN-100",
				Name:        "Dependency injection registration present",
				Type:        model.KindRequiredPattern,
				Severity:    model.SeverityMedium,
				Category:    "Architecture",
				Description: "A codebase without any DI container registration usually wires dependencies by hand.",
				Regex:       `\.Add(Scoped|Transient|Singleton)\s*<`,
				Constraint:  "Register services in the dependency injection container and inject via constructor",
			},
			{
				ID:          "DN-101",
				Name:        "Structured logging present",
				Type:        model.KindRequiredPattern,
				Severity:    model.SeverityLow,
				Category:    "Reliability",
				Description: "No ILogger usage anywhere suggests Console.WriteLine-style diagnostics.",
				Regex:       `ILogger<`,
				Constraint:  "Use ILogger<T> structured logging rather than console writes",
			},
		},
		Rules: []string{
			"Follow RESTful conventions for controller routes and verbs",
			"Use async/await end to end for I/O-bound work",
			"Return typed results (ActionResult<T>) from API endpoints",
			"Keep nullable reference types enabled and resolve warnings",
		},
		Constraints: []string{
			"Use dependency injection",
			"Keep controllers thin; business logic belongs in services",
			"Validate all external input at API boundaries",
			"Use parameterized queries for data access",
		},
		Categories: map[string]Category{
			"Architecture": {
				Description: "Layering, dependency direction and composition",
				Practices: []string{
					"Controllers delegate to services; services own business rules",
					"Depend on abstractions registered in the DI container",
					"One DbContext per unit of work, injected where needed",
				},
			},
			"Security": {
				Description: "Input handling, secrets and data access safety",
				Practices: []string{
					"Parameterize every query; treat request data as hostile",
					"Store secrets in configuration providers or a vault",
					"Apply [Authorize] by default and opt out explicitly",
				},
			},
			"Performance": {
				Description: "Resource usage under load",
				Practices: []string{
					"Pool expensive clients (HttpClient, DbConnection)",
					"Prefer streaming over buffering for large payloads",
					"Cache immutable lookups with bounded lifetimes",
				},
			},
			"Reliability": {
				Description: "Failure visibility and async hygiene",
				Practices: []string{
					"Propagate CancellationToken through async call chains",
					"Log failures with context via ILogger<T>",
					"Fail fast on startup misconfiguration",
				},
			},
			"Code Quality": {
				Description: "Consistency and maintainability",
				Practices: []string{
					"Keep classes focused; split types that accumulate unrelated members",
					"Handle or surface every exception deliberately",
				},
			},
		},
	}
}
