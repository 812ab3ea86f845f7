package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/invoicer/internal/domain"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage clients",
	Long:  `List, add, edit, archive, and delete clients.`,
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}
		includeArchived, _ := cmd.Flags().GetBool("archived")

		clients, err := appInstance.ClientService.List(ctx, actor, includeArchived)
		if err != nil {
			return fmt.Errorf("failed to list clients: %w", err)
		}

		if len(clients) == 0 {
			fmt.Println("No clients found")
			return nil
		}

		fmt.Printf("%-5s %-30s %-28s %-14s %-10s\n", "ID", "Name", "Email", "Phone", "Status")
		fmt.Println("-----------------------------------------------------------------------------------------")

		for _, client := range clients {
			status := "Active"
			if client.IsArchived {
				status = "Archived"
			}
			fmt.Printf("%-5d %-30s %-28s %-14s %-10s\n",
				client.ID,
				truncate(client.Name, 30),
				truncate(client.Email, 28),
				client.Phone,
				status,
			)
		}

		fmt.Printf("\nTotal: %d client(s)\n", len(clients))
		return nil
	},
}

var clientsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		client := domain.NewClient(actor.OwnerID, args[0])
		client.Email, _ = cmd.Flags().GetString("email")
		client.Address, _ = cmd.Flags().GetString("address")
		client.Phone, _ = cmd.Flags().GetString("phone")
		client.NTNNumber, _ = cmd.Flags().GetString("ntn")
		client.Notes, _ = cmd.Flags().GetString("notes")

		if err := appInstance.ClientService.Create(ctx, actor, client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		fmt.Printf("✓ Client created: %s (ID: %d)\n", client.Name, client.ID)
		return nil
	},
}

var clientsShowCmd = &cobra.Command{
	Use:   "show [id_or_name]",
	Short: "Show client details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		c, err := resolveClient(ctx, actor, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Client #%d: %s\n", c.ID, c.Name)
		fmt.Printf("  Email:    %s\n", c.Email)
		fmt.Printf("  Address:  %s\n", c.Address)
		fmt.Printf("  Phone:    %s\n", c.Phone)
		fmt.Printf("  NTN:      %s\n", c.NTNNumber)
		fmt.Printf("  Notes:    %s\n", c.Notes)
		fmt.Printf("  Archived: %s\n", yesNo(c.IsArchived))
		return nil
	},
}

var clientsEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit an existing client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		patch := domain.ClientPatch{
			Name:      stringFlag(cmd, "name"),
			Email:     stringFlag(cmd, "email"),
			Address:   stringFlag(cmd, "address"),
			Phone:     stringFlag(cmd, "phone"),
			NTNNumber: stringFlag(cmd, "ntn"),
			Notes:     stringFlag(cmd, "notes"),
		}
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to change: pass at least one flag")
		}

		client, err := appInstance.ClientService.Update(ctx, actor, id, patch)
		if err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}

		fmt.Printf("✓ Client updated: %s\n", client.Name)
		return nil
	},
}

var clientsArchiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		if err := appInstance.ClientService.Archive(ctx, actor, id); err != nil {
			return fmt.Errorf("failed to archive client: %w", err)
		}

		fmt.Printf("✓ Client archived (ID: %d)\n", id)
		return nil
	},
}

var clientsUnarchiveCmd = &cobra.Command{
	Use:   "unarchive [id]",
	Short: "Unarchive a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		if err := appInstance.ClientService.Unarchive(ctx, actor, id); err != nil {
			return fmt.Errorf("failed to unarchive client: %w", err)
		}

		fmt.Printf("✓ Client unarchived (ID: %d)\n", id)
		return nil
	},
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a client and all of its invoices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		if !confirmPrompt(fmt.Sprintf("Delete client #%d and ALL of its invoices?", id)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.ClientService.Delete(ctx, actor, id); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}

		fmt.Printf("✓ Client deleted (ID: %d)\n", id)
		return nil
	},
}

func init() {
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsAddCmd)
	clientsCmd.AddCommand(clientsShowCmd)
	clientsCmd.AddCommand(clientsEditCmd)
	clientsCmd.AddCommand(clientsArchiveCmd)
	clientsCmd.AddCommand(clientsUnarchiveCmd)
	clientsCmd.AddCommand(clientsDeleteCmd)

	// List flags
	clientsListCmd.Flags().Bool("archived", false, "Include archived clients")

	// Add and edit share the contact flags
	for _, c := range []*cobra.Command{clientsAddCmd, clientsEditCmd} {
		c.Flags().String("email", "", "Client email")
		c.Flags().String("address", "", "Postal address")
		c.Flags().String("phone", "", "Phone, e.g. 0123-4567890")
		c.Flags().String("ntn", "", "National tax number")
		c.Flags().String("notes", "", "Notes about the client")
	}
	clientsEditCmd.Flags().String("name", "", "New name")
}
