package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/hiershare/hiershare/internal/client"
	"github.com/hiershare/hiershare/internal/models"
)

// apiTestRunner collects pass/fail results while the smoke tests run.
type apiTestRunner struct {
	passed int
	failed int
}

func (r *apiTestRunner) expect(name string, resp *resty.Response, err error, wantStatuses ...int) {
	if err != nil {
		r.failed++
		fmt.Printf("  %s %s: %v\n", errorStyle.Render("✗"), name, err)
		return
	}
	for _, want := range wantStatuses {
		if resp.StatusCode() == want {
			r.passed++
			fmt.Printf("  %s %s (%d)\n", successStyle.Render("✓"), name, resp.StatusCode())
			return
		}
	}
	r.failed++
	fmt.Printf("  %s %s: got %d, want %v\n", errorStyle.Render("✗"), name, resp.StatusCode(), wantStatuses)
}

func (r *apiTestRunner) check(name string, err error) {
	if err != nil {
		r.failed++
		fmt.Printf("  %s %s: %v\n", errorStyle.Render("✗"), name, err)
		return
	}
	r.passed++
	fmt.Printf("  %s %s\n", successStyle.Render("✓"), name)
}

// apitestCmd smoke-tests a running gateway end to end. It assumes the demo
// dataset has been seeded, so alice administers organisation acme and bob
// holds inherited viewer access.
var apitestCmd = &cobra.Command{
	Use:   "apitest",
	Short: "Run a smoke test suite against the gateway API",
	Long: `Issue a series of requests against a running gateway covering health,
authentication, resource CRUD, sharing, and listing. Expects the demo
dataset ('hiershare demo') to be in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		backend := client.NewBackendClient(cfg.GetBackendUrl())
		runner := &apiTestRunner{}
		key := models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ledger"}

		fmt.Println(titleStyle.Render("Gateway API Test"))
		fmt.Println(dimStyle.Render("  target: " + cfg.GetBackendUrl()))
		fmt.Println()

		fmt.Println(headerStyle.Render("Service endpoints"))
		_, err := backend.Health(ctx)
		runner.check("GET /health", err)

		resp, err := backend.Root(ctx)
		runner.expect("GET /", resp, err, http.StatusOK)

		fmt.Println()
		fmt.Println(headerStyle.Render("Authentication"))
		resp, err = backend.GetResource(ctx, "", key)
		runner.expect("missing X-User-Id is rejected", resp, err, http.StatusUnauthorized)

		resp, err = backend.GetResource(ctx, " ", key)
		runner.expect("blank X-User-Id is rejected", resp, err, http.StatusBadRequest)

		fmt.Println()
		fmt.Println(headerStyle.Render("Resource lifecycle"))
		resp, err = backend.CreateResource(ctx, "mallory", key, nil)
		runner.expect("create denied without org admin", resp, err, http.StatusForbidden)

		resp, err = backend.CreateResource(ctx, "alice", key, map[string]any{"tier": "demo"})
		runner.expect("create as org admin", resp, err, http.StatusCreated, http.StatusConflict)

		resp, err = backend.GetResource(ctx, "bob", key)
		runner.expect("read with inherited viewer", resp, err, http.StatusOK)

		resp, err = backend.UpdateResource(ctx, "carol", key, map[string]any{"tier": "gold"})
		runner.expect("update denied for viewer", resp, err, http.StatusForbidden)

		resp, err = backend.UpdateResource(ctx, "alice", key, map[string]any{"tier": "gold"})
		runner.expect("update as admin", resp, err, http.StatusOK)

		resp, err = backend.DeleteResource(ctx, "bob", key)
		runner.expect("delete denied for viewer", resp, err, http.StatusForbidden)

		fmt.Println()
		fmt.Println(headerStyle.Render("Sharing"))
		grant := models.Grant{
			Subject:  "user:dave",
			Relation: models.RelationViewer,
			Object:   key.String(),
		}

		resp, err = backend.Share(ctx, "mallory", grant)
		runner.expect("share denied without org admin", resp, err, http.StatusForbidden)

		resp, err = backend.Share(ctx, "alice", grant)
		runner.expect("share as org admin", resp, err, http.StatusOK)

		resp, err = backend.GetResource(ctx, "dave", key)
		runner.expect("shared user can read", resp, err, http.StatusOK)

		resp, err = backend.Unshare(ctx, "alice", grant)
		runner.expect("unshare as org admin", resp, err, http.StatusOK)

		fmt.Println()
		fmt.Println(headerStyle.Render("Listing"))
		list, err := backend.ListResources(ctx, "bob", models.RelationViewer, models.KindResource)
		runner.check(fmt.Sprintf("list resources (%d visible)", list.TotalCount), err)

		shared, err := backend.SharedResources(ctx, "bob")
		runner.check(fmt.Sprintf("shared aggregation (%d services, %d types, %d resources)",
			len(shared.Services), len(shared.ServiceTypes), len(shared.Resources)), err)

		fmt.Println()
		if runner.failed > 0 {
			fmt.Println(errorStyle.Render(fmt.Sprintf("%d passed, %d failed", runner.passed, runner.failed)))
			return fmt.Errorf("api test failed")
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("All %d tests passed", runner.passed)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apitestCmd)
}
