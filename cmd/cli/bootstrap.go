package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hiershare/hiershare/internal/client"
	"github.com/hiershare/hiershare/internal/fga"
)

var bootstrapStoreName string

// bootstrapCmd prepares a running OpenFGA server for the gateway: it finds
// or creates the store and writes the authorization model, then prints the
// IDs the gateway needs in its environment.
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the OpenFGA store and authorization model",
	Long: `Create (or reuse) the OpenFGA store and write the sharing authorization
model into it. Prints the store and model IDs to export before starting
the gateway.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fgaClient := client.NewOpenFGAClient(cfg.OpenFGA.URL(), cfg.OpenFGA.Token)

		if err := fgaClient.Healthz(ctx); err != nil {
			return fmt.Errorf("OpenFGA server at %s is not healthy: %w", cfg.OpenFGA.URL(), err)
		}
		fmt.Println(successStyle.Render("✓") + " OpenFGA server is serving")

		store, err := findOrCreateStore(ctx, fgaClient)
		if err != nil {
			return err
		}

		modelID, err := fgaClient.WriteAuthorizationModel(ctx, store.ID, fga.AuthModelFile)
		if err != nil {
			return fmt.Errorf("failed to write authorization model: %w", err)
		}
		fmt.Println(successStyle.Render("✓") + " Authorization model written")

		fmt.Println()
		fmt.Println(headerStyle.Render("Export before starting the gateway:"))
		fmt.Printf("  export HIERSHARE_OPENFGA_STORE_ID=%s\n", store.ID)
		fmt.Printf("  export HIERSHARE_OPENFGA_AUTH_MODEL_ID=%s\n", modelID)

		return nil
	},
}

func findOrCreateStore(ctx context.Context, fgaClient *client.OpenFGAClient) (client.Store, error) {
	stores, err := fgaClient.ListStores(ctx)
	if err != nil {
		return client.Store{}, fmt.Errorf("failed to list stores: %w", err)
	}

	for _, store := range stores {
		if store.Name == bootstrapStoreName {
			fmt.Printf("%s Reusing store %q (%s)\n", infoStyle.Render("•"), store.Name, store.ID)
			return store, nil
		}
	}

	store, err := fgaClient.CreateStore(ctx, bootstrapStoreName)
	if err != nil {
		return client.Store{}, fmt.Errorf("failed to create store: %w", err)
	}
	fmt.Printf("%s Created store %q (%s)\n", successStyle.Render("✓"), store.Name, store.ID)
	return store, nil
}

func init() {
	bootstrapCmd.Flags().StringVar(&bootstrapStoreName, "store-name", "hiershare", "Name of the OpenFGA store")
	rootCmd.AddCommand(bootstrapCmd)
}
