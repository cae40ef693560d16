package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"campus-inventory/internal/inventory"
	"campus-inventory/internal/store"
)

var campusCmd = &cobra.Command{
	Use:   "campus",
	Short: "Manage the campus catalog",
}

var campusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campuses with device counts and last save",
	Args:  cobra.NoArgs,
	RunE:  runCampusList,
}

var campusAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a new campus",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampusAdd,
}

var campusRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Drop a campus from the catalog after confirmation",
	Long: `Drop a campus from the catalog. Its inventory file is kept on disk;
adding a campus with the same name again brings its devices back.`,
	Args: cobra.ExactArgs(1),
	RunE: runCampusRemove,
}

func init() {
	campusCmd.AddCommand(campusListCmd)
	campusCmd.AddCommand(campusAddCmd)
	campusCmd.AddCommand(campusRemoveCmd)

	campusRemoveCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

func runCampusList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	campuses, err := a.session.Campuses()
	if err != nil {
		return err
	}
	selected := campusFlag
	if selected == "" {
		selected = a.cfg.DefaultCampus
	}
	renderCampuses(cmd.OutOrStdout(), newStyles(), campuses, selected, time.Now())
	return nil
}

func runCampusAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.session.AddCampus(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), newStyles().success.Render(fmt.Sprintf("campus %q added", c.Name)))
	return nil
}

func runCampusRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	confirm := func(c *store.Campus) bool {
		return askYesNo(cmd.InOrStdin(), out, fmt.Sprintf("Remove campus %q (%d devices at last save)?", c.Name, c.DeviceCount))
	}
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		confirm = func(*store.Campus) bool { return true }
	}
	st := newStyles()
	if err := a.session.RemoveCampus(args[0], confirm); err != nil {
		if errors.Is(err, inventory.ErrAborted) {
			fmt.Fprintln(out, st.muted.Render("nothing removed"))
			return nil
		}
		return err
	}
	fmt.Fprintln(out, st.success.Render(fmt.Sprintf("campus %q removed; its file is kept", store.NormalizeName(args[0]))))
	return nil
}
