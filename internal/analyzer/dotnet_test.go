package analyzer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

func scanDotnet(t *testing.T, root string) []model.Finding {
	t.Helper()
	findings, err := NewDotnetArchitecture(nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return findings
}

func findByID(findings []model.Finding, id string) (model.Finding, bool) {
	for _, f := range findings {
		if f.PatternID == id {
			return f, true
		}
	}
	return model.Finding{}, false
}

func TestDotnet_ControllerWithDbContextField(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Controllers", "OrdersController.cs"), `using Microsoft.AspNetCore.Mvc;

public class OrdersController : ControllerBase
{
    private readonly AppDbContext _context;

    public OrdersController(AppDbContext context) => _context = context;
}
`)
	mustWrite(t, filepath.Join(root, "Data", "AppDbContext.cs"), `public class AppDbContext : DbContext
{
}
`)

	findings := scanDotnet(t, root)

	f, ok := findByID(findings, "ARCH-001")
	if !ok {
		t.Fatalf("expected ARCH-001, got %+v", findings)
	}
	if f.Occurrences != 1 {
		t.Errorf("expected one offending controller, got %d", f.Occurrences)
	}
	if len(f.Evidence) != 1 || f.Evidence[0].Path != "Controllers/OrdersController.cs" {
		t.Errorf("unexpected evidence: %+v", f.Evidence)
	}
	if f.Severity != model.SeverityHigh || f.Category != "Architecture" {
		t.Errorf("unexpected classification: %+v", f)
	}
	if len(f.Constraints) != 3 {
		t.Errorf("expected three suggested constraints, got %v", f.Constraints)
	}
	// The DbContext class itself is not a controller, so no second hit.
	if _, ok := findByID(findings, "ARCH-002"); ok {
		t.Errorf("no business logic present, ARCH-002 should not fire: %+v", findings)
	}
}

func TestDotnet_ThinControllerIsClean(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Controllers", "HealthController.cs"), `public class HealthController : ControllerBase
{
    private readonly IHealthService _health;

    public IActionResult Get() => Ok(_health.Status());
}
`)

	if findings := scanDotnet(t, root); len(findings) != 0 {
		t.Fatalf("expected no findings for a thin controller, got %+v", findings)
	}
}

func TestDotnet_LinqInControllerFlagsBusinessLogic(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "ReportController.cs"), `public class ReportController : ControllerBase
{
    public IActionResult Totals() =>
        Ok(_items.Where(i => i.Active).Select(i => i.Price).Sum());
}
`)

	findings := scanDotnet(t, root)
	f, ok := findByID(findings, "ARCH-002")
	if !ok {
		t.Fatalf("expected ARCH-002 for LINQ in a controller, got %+v", findings)
	}
	if f.Occurrences != 1 || f.Severity != model.SeverityMedium {
		t.Errorf("unexpected finding shape: %+v", f)
	}
}

func TestDotnet_LinqOutsideControllersIsFine(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Services", "ReportService.cs"), `public class ReportService
{
    public decimal Totals() => _items.Where(i => i.Active).Sum(i => i.Price);
}
`)

	if findings := scanDotnet(t, root); len(findings) != 0 {
		t.Fatalf("LINQ belongs in services, expected no findings, got %+v", findings)
	}
}

func TestDotnet_DirectServiceInstantiation(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Checkout.cs"), `public class Checkout
{
    public void Run()
    {
        var repo = new OrderRepository();
        var svc = new PaymentService(repo);
        var list = new List<string>();
        var sb = new StringBuilder();
    }
}
`)

	findings := scanDotnet(t, root)
	f, ok := findByID(findings, "ARCH-003")
	if !ok {
		t.Fatalf("expected ARCH-003, got %+v", findings)
	}
	if f.Occurrences != 2 {
		t.Errorf("expected two flagged constructions (repository + service), got %d", f.Occurrences)
	}
	if len(f.Evidence) != 2 {
		t.Fatalf("expected two evidence locations, got %+v", f.Evidence)
	}
	if f.Evidence[0].Line != 5 || f.Evidence[1].Line != 6 {
		t.Errorf("expected line-accurate evidence, got %+v", f.Evidence)
	}
}

func TestDotnet_CollectionConstructorsAreExempt(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Util.cs"), `public class Util
{
    var a = new List<int>();
    var b = new Dictionary<string, int>();
    var c = new HashSet<int>();
    var d = new StringBuilder();
    var e = new DateTime(2024, 1, 1);
    var f = new Guid();
    var g = new Exception("x");
}
`)

	if findings := scanDotnet(t, root); len(findings) != 0 {
		t.Fatalf("value and collection types are exempt, got %+v", findings)
	}
}

func TestDotnet_StaticServiceLocation(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Legacy.cs"), `public class Legacy
{
    public void Handle()
    {
        var user = HttpContext.Current.User;
        var svc = ServiceLocator.Resolve<IMailService>();
    }
}
`)
	mustWrite(t, filepath.Join(root, "Modern.cs"), `public class Modern
{
    private readonly IMailService _mail;
}
`)

	findings := scanDotnet(t, root)
	f, ok := findByID(findings, "ARCH-004")
	if !ok {
		t.Fatalf("expected ARCH-004, got %+v", findings)
	}
	// One occurrence per offending file, not per match.
	if f.Occurrences != 1 {
		t.Errorf("expected occurrences=1, got %d", f.Occurrences)
	}
	if f.Severity != model.SeverityHigh {
		t.Errorf("unexpected severity: %s", f.Severity)
	}
}

func TestDotnet_EmptyRepositoryIsClean(t *testing.T) {
	if findings := scanDotnet(t, t.TempDir()); len(findings) != 0 {
		t.Fatalf("expected no findings in an empty tree, got %+v", findings)
	}
}
