package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"campus-inventory/internal/inventory"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every device of the campus",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <position>",
	Short: "Show one device",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var findCmd = &cobra.Command{
	Use:   "find <text>",
	Short: "Find devices whose name contains text (case-insensitive)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a device",
	Long: `Add a device to the campus and save the campus file.

Kinds: pc, server, router, switch, firewall, printer.
Layers (routers and switches only): core, distribution, access.
Services: DNS, DHCP, Web, Database, Mail, VPN.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var updateCmd = &cobra.Command{
	Use:   "update <position>",
	Short: "Change fields of a device",
	Long: `Change the name, IP, layer or services of a device. Only the fields
given are changed and validated. Pass --ip "" to clear the address and
--layer "" to clear the layer.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var removeCmd = &cobra.Command{
	Use:   "remove <position>",
	Short: "Remove a device after confirmation",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import devices from a file in the legacy text form",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	listCmd.Flags().Bool("json", false, "Output the persisted form as JSON")

	addCmd.Flags().StringP("kind", "k", "", "device kind")
	addCmd.Flags().StringP("name", "n", "", "device name")
	addCmd.Flags().String("ip", "", "IPv4 address")
	addCmd.Flags().String("layer", "", "hierarchy layer")
	addCmd.Flags().StringArrayP("service", "s", nil, "service tag (repeatable)")
	_ = addCmd.MarkFlagRequired("kind")
	_ = addCmd.MarkFlagRequired("name")

	updateCmd.Flags().StringP("name", "n", "", "new name")
	updateCmd.Flags().String("ip", "", "new IPv4 address")
	updateCmd.Flags().String("layer", "", "new hierarchy layer")
	updateCmd.Flags().StringArray("add-service", nil, "service tag to add (repeatable)")
	updateCmd.Flags().StringArray("remove-service", nil, "service tag to remove (repeatable)")

	removeCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	devices, err := a.session.List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		entries := []map[string]string{}
		for _, r := range devices {
			entries = append(entries, inventory.ToPersisted(r))
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	st := newStyles()
	now := time.Now()
	n := 0
	for pos, r := range devices {
		fmt.Fprint(out, renderDevice(st, pos, r, now))
		n++
	}
	if n == 0 {
		fmt.Fprintln(out, st.muted.Render(fmt.Sprintf("no devices in %s", a.session.Campus())))
	}
	return nil
}

func parsePosition(arg string) (int, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil || pos < 0 {
		return 0, fmt.Errorf("position %q: %w", arg, inventory.ErrNotFound)
	}
	return pos, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	pos, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.session.Get(pos)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderDevice(newStyles(), pos, r, time.Now()))
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	matches, err := a.session.FindByName(args[0])
	if err != nil {
		return err
	}
	st := newStyles()
	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintln(out, st.muted.Render(fmt.Sprintf("no device name contains %q", args[0])))
		return nil
	}
	now := time.Now()
	for _, m := range matches {
		fmt.Fprint(out, renderDevice(st, m.Position, m.Record, now))
	}
	return nil
}

// parseServices checks tags against the vocabulary and returns their
// canonical forms.
func parseServices(tags []string) ([]inventory.Service, error) {
	if err := inventory.ValidateServices(tags); err != nil {
		return nil, err
	}
	out := make([]inventory.Service, 0, len(tags))
	for _, t := range tags {
		svc, _ := inventory.ParseService(t)
		out = append(out, svc)
	}
	return out, nil
}

func parseLayer(v string) (inventory.Layer, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil
	}
	l, ok := inventory.ParseLayer(v)
	if !ok {
		return "", fmt.Errorf("layer %q: %w", v, inventory.ErrParse)
	}
	return l, nil
}

// recordFromFlags builds the record described by the add flags.
func recordFromFlags(cmd *cobra.Command) (inventory.Record, error) {
	kindArg, _ := cmd.Flags().GetString("kind")
	name, _ := cmd.Flags().GetString("name")
	ip, _ := cmd.Flags().GetString("ip")
	layerArg, _ := cmd.Flags().GetString("layer")
	tags, _ := cmd.Flags().GetStringArray("service")

	kind, ok := inventory.ParseKind(kindArg)
	if !ok {
		return inventory.Record{}, fmt.Errorf("kind %q: %w", kindArg, inventory.ErrParse)
	}
	layer, err := parseLayer(layerArg)
	if err != nil {
		return inventory.Record{}, err
	}
	services, err := parseServices(tags)
	if err != nil {
		return inventory.Record{}, err
	}
	return inventory.Record{
		Kind:     kind,
		Name:     name,
		IP:       strings.TrimSpace(ip),
		Layer:    layer,
		Services: services,
	}, nil
}

func runAdd(cmd *cobra.Command, _ []string) error {
	r, err := recordFromFlags(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	pos, err := a.session.Add(r)
	if err != nil {
		return err
	}
	if err := a.session.Save(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), newStyles().success.Render(fmt.Sprintf("added %q at position %d", r.Name, pos)))
	return nil
}

// mutationFromFlags sets only the fields whose flags were given.
func mutationFromFlags(cmd *cobra.Command) (inventory.Mutation, error) {
	var m inventory.Mutation
	flags := cmd.Flags()
	if flags.Changed("name") {
		v, _ := flags.GetString("name")
		m.Name = &v
	}
	if flags.Changed("ip") {
		v, _ := flags.GetString("ip")
		v = strings.TrimSpace(v)
		m.IP = &v
	}
	if flags.Changed("layer") {
		v, _ := flags.GetString("layer")
		l, err := parseLayer(v)
		if err != nil {
			return m, err
		}
		m.Layer = &l
	}
	if flags.Changed("add-service") {
		tags, _ := flags.GetStringArray("add-service")
		svcs, err := parseServices(tags)
		if err != nil {
			return m, err
		}
		m.AddServices = svcs
	}
	if flags.Changed("remove-service") {
		tags, _ := flags.GetStringArray("remove-service")
		for _, t := range tags {
			svc, ok := inventory.ParseService(t)
			if !ok {
				return m, fmt.Errorf("service %q: %w", t, inventory.ErrUnknownService)
			}
			m.RemoveServices = append(m.RemoveServices, svc)
		}
	}
	return m, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	pos, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	m, err := mutationFromFlags(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Update(pos, m); err != nil {
		return err
	}
	if err := a.session.Save(); err != nil {
		return err
	}
	r, _ := a.session.Get(pos)
	fmt.Fprint(cmd.OutOrStdout(), renderDevice(newStyles(), pos, r, time.Now()))
	return nil
}

// askYesNo writes question to out and reads the answer from in. Anything
// but yes (or the Spanish sí) declines.
func askYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}

func confirmPrompt(in io.Reader, out io.Writer) func(inventory.Record) bool {
	return func(r inventory.Record) bool {
		return askYesNo(in, out, fmt.Sprintf("Remove %s %q?", r.Kind.Label(), r.Name))
	}
}

func runRemove(cmd *cobra.Command, args []string) error {
	pos, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	confirm := confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		confirm = func(inventory.Record) bool { return true }
	}
	if err := a.session.Remove(pos, confirm); err != nil {
		if errors.Is(err, inventory.ErrAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), newStyles().muted.Render("nothing removed"))
			return nil
		}
		return err
	}
	if err := a.session.Save(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), newStyles().success.Render(fmt.Sprintf("removed position %d", pos)))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	added, errs := a.session.ImportLegacy(string(data))
	st := newStyles()
	out := cmd.OutOrStdout()
	for _, err := range errs {
		fmt.Fprintln(out, st.muted.Render("skipped: "+err.Error()))
	}
	if added == 0 {
		return fmt.Errorf("nothing imported from %s (%d skipped)", args[0], len(errs))
	}
	if err := a.session.Save(); err != nil {
		return err
	}
	fmt.Fprintln(out, st.success.Render(fmt.Sprintf("imported %d devices, skipped %d", added, len(errs))))
	return nil
}
