package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/invoicer/internal/domain"
)

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "Manage owners",
	Long: `Register businesses that issue invoices and edit their profiles.

The first owner registered becomes staff and can see every owner's data.`,
}

var ownersAddCmd = &cobra.Command{
	Use:   "add [email] [name]",
	Short: "Register a new owner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		owner, err := appInstance.OwnerService.Register(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to register owner: %w", err)
		}

		fmt.Printf("✓ Owner registered: %s <%s> (ID: %d)\n", owner.Name, owner.Email, owner.ID)
		if owner.IsStaff {
			fmt.Println("  Staff: yes (first owner)")
		}
		if appInstance.Config.Owner.Email == "" {
			appInstance.Config.Owner.Email = owner.Email
			if err := appInstance.SaveConfig(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Printf("  Set as the default owner in %s\n", appInstance.ConfigPath)
		}
		return nil
	},
}

var ownersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List owners",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		owners, err := appInstance.OwnerService.List(ctx, actor)
		if err != nil {
			return fmt.Errorf("failed to list owners: %w", err)
		}

		fmt.Printf("%-5s %-30s %-30s %-6s %-9s\n", "ID", "Email", "Name", "Staff", "Onboarded")
		fmt.Println("---------------------------------------------------------------------------------")
		for _, o := range owners {
			fmt.Printf("%-5d %-30s %-30s %-6s %-9s\n",
				o.ID,
				truncate(o.Email, 30),
				truncate(o.Name, 30),
				yesNo(o.IsStaff),
				yesNo(o.IsOnboarded),
			)
		}

		fmt.Printf("\nTotal: %d owner(s)\n", len(owners))
		return nil
	},
}

var ownersShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an owner's profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id := actor.OwnerID
		if len(args) == 1 {
			if id, err = parseID("owner", args[0]); err != nil {
				return err
			}
		}

		o, err := appInstance.OwnerService.Get(ctx, actor, id)
		if err != nil {
			return fmt.Errorf("failed to get owner: %w", err)
		}

		fmt.Printf("Owner #%d\n", o.ID)
		fmt.Printf("  Email:         %s\n", o.Email)
		fmt.Printf("  Name:          %s\n", o.Name)
		fmt.Printf("  Address:       %s\n", o.Address)
		fmt.Printf("  Phone:         %s %s\n", o.Phone, o.Phone2)
		fmt.Printf("  NTN:           %s\n", o.NTNNumber)
		fmt.Printf("  Bank:          %s\n", o.Bank)
		fmt.Printf("  Account Title: %s\n", o.AccountTitle)
		fmt.Printf("  IBAN:          %s\n", o.IBAN)
		fmt.Printf("  Logo:          %s\n", o.LogoPath)
		fmt.Printf("  Signature:     %s\n", o.SignaturePath)
		fmt.Printf("  Staff:         %s\n", yesNo(o.IsStaff))
		fmt.Printf("  Onboarded:     %s\n", yesNo(o.IsOnboarded))
		return nil
	},
}

var ownersEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit an owner's profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id := actor.OwnerID
		if len(args) == 1 {
			if id, err = parseID("owner", args[0]); err != nil {
				return err
			}
		}

		patch := domain.OwnerPatch{
			Name:          stringFlag(cmd, "name"),
			Address:       stringFlag(cmd, "address"),
			Phone:         stringFlag(cmd, "phone"),
			Phone2:        stringFlag(cmd, "phone2"),
			NTNNumber:     stringFlag(cmd, "ntn"),
			Bank:          stringFlag(cmd, "bank"),
			AccountTitle:  stringFlag(cmd, "account-title"),
			IBAN:          stringFlag(cmd, "iban"),
			LogoPath:      stringFlag(cmd, "logo"),
			SignaturePath: stringFlag(cmd, "signature"),
		}

		o, err := appInstance.OwnerService.Update(ctx, actor, id, patch)
		if err != nil {
			return fmt.Errorf("failed to update owner: %w", err)
		}

		fmt.Printf("✓ Owner updated: %s\n", o.Name)
		return nil
	},
}

var ownersStaffCmd = &cobra.Command{
	Use:   "staff [id]",
	Short: "Grant or revoke staff visibility (staff only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("owner", args[0])
		if err != nil {
			return err
		}
		revoke, _ := cmd.Flags().GetBool("revoke")

		if err := appInstance.OwnerService.SetStaff(ctx, actor, id, !revoke); err != nil {
			return fmt.Errorf("failed to change staff flag: %w", err)
		}

		fmt.Printf("✓ Owner #%d staff: %s\n", id, yesNo(!revoke))
		return nil
	},
}

var ownersDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an owner with all clients and invoices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("owner", args[0])
		if err != nil {
			return err
		}

		if !confirmPrompt(fmt.Sprintf("Delete owner #%d and ALL of its clients and invoices?", id)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.OwnerService.Delete(ctx, actor, id); err != nil {
			return fmt.Errorf("failed to delete owner: %w", err)
		}

		fmt.Printf("✓ Owner #%d deleted\n", id)
		return nil
	},
}

func init() {
	ownersCmd.AddCommand(ownersAddCmd)
	ownersCmd.AddCommand(ownersListCmd)
	ownersCmd.AddCommand(ownersShowCmd)
	ownersCmd.AddCommand(ownersEditCmd)
	ownersCmd.AddCommand(ownersStaffCmd)
	ownersCmd.AddCommand(ownersDeleteCmd)

	// Edit flags
	ownersEditCmd.Flags().String("name", "", "Business name")
	ownersEditCmd.Flags().String("address", "", "Postal address")
	ownersEditCmd.Flags().String("phone", "", "Phone, e.g. 0123-4567890")
	ownersEditCmd.Flags().String("phone2", "", "Second phone")
	ownersEditCmd.Flags().String("ntn", "", "National tax number")
	ownersEditCmd.Flags().String("bank", "", "Bank name")
	ownersEditCmd.Flags().String("account-title", "", "Bank account title")
	ownersEditCmd.Flags().String("iban", "", "IBAN")
	ownersEditCmd.Flags().String("logo", "", "Path to a logo image (PNG or JPEG)")
	ownersEditCmd.Flags().String("signature", "", "Path to a signature image (PNG or JPEG)")

	// Staff flags
	ownersStaffCmd.Flags().Bool("revoke", false, "Revoke instead of grant")
}
