package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/internal/repository"
	"github.com/arkivet/document-api/internal/service"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/database"
)

type documentStore interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentMetadata, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status models.DocumentStatus, at time.Time) error
}

type sweepResult struct {
	ToArchive int
	ToDelete  int
	Archived  int
}

// Walks every active document for a tenant and reports which ones the
// retention rules say should be archived or deleted. Read-only unless
// -apply is set, in which case overdue documents are marked archived.
func main() {
	var (
		tenantID string
		apply    bool
		pageSize int
		timeout  time.Duration
	)

	flag.StringVar(&tenantID, "tenant", "", "Tenant to sweep (required)")
	flag.BoolVar(&apply, "apply", false, "Mark overdue documents archived instead of only reporting")
	flag.IntVar(&pageSize, "page-size", 200, "Documents fetched per batch")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall sweep timeout")
	flag.Parse()

	if tenantID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	documents := repository.NewDocumentRepository(db)
	policy := service.NewPolicyService(cfg.Compliance)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tUPLOADED\tSTATUS\tRETENTION")

	result, err := sweep(ctx, documents, policy, w, tenantID, pageSize, apply, time.Now().UTC())
	w.Flush() //nolint:errcheck
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}

	fmt.Printf("\n%d documents past the archive threshold, %d past the deletion threshold\n", result.ToArchive, result.ToDelete)
	if result.ToDelete > 0 {
		fmt.Println("deletion is never applied by this tool; use the API so the retention gate and audit trail are enforced")
	}
	if apply {
		fmt.Printf("marked %d documents archived\n", result.Archived)
	}
}

func sweep(ctx context.Context, documents documentStore, policy *service.PolicyService, w io.Writer, tenantID string, pageSize int, apply bool, now time.Time) (sweepResult, error) {
	var result sweepResult
	offset := 0
	for {
		batch, err := documents.List(ctx, models.DocumentFilter{
			TenantID: tenantID,
			Status:   models.DocumentStatusActive,
			Limit:    pageSize,
			Offset:   offset,
		})
		if err != nil {
			return result, fmt.Errorf("list documents: %w", err)
		}
		if len(batch) == 0 {
			return result, nil
		}
		archived := 0
		for i := range batch {
			doc := &batch[i]
			retention := policy.RetentionStatus(doc, now)
			if retention == models.RetentionActive {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				doc.ID, doc.UploadedAt.Format("2006-01-02"), doc.Status, retention)
			switch retention {
			case models.RetentionArchived:
				result.ToArchive++
				if apply {
					if err := documents.UpdateStatus(ctx, tenantID, doc.ID, models.DocumentStatusArchived, now); err != nil {
						log.Printf("failed to mark %s archived: %v", doc.ID, err)
						continue
					}
					result.Archived++
					archived++
				}
			case models.RetentionDeleted:
				result.ToDelete++
			}
		}
		// Archived documents drop out of the active-filtered listing, so
		// advancing past them would skip documents that are still active.
		offset += len(batch) - archived
	}
}
