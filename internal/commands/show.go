package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the QoS configuration in the store",
	}
	showCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, yaml, json)")

	showCmd.AddCommand(&cobra.Command{
		Use:   "system",
		Short: "Show the system record and trust mode",
		RunE:  runShowSystem,
	})
	showCmd.AddCommand(&cobra.Command{
		Use:   "profiles",
		Short: "Show scheduling and queue mapping profiles",
		RunE:  runShowProfiles,
	})
	showCmd.AddCommand(&cobra.Command{
		Use:   "cos",
		Short: "Show the live CoS map",
		RunE:  runShowCosMap,
	})
	showCmd.AddCommand(&cobra.Command{
		Use:   "dscp",
		Short: "Show the live DSCP map",
		RunE:  runShowDscpMap,
	})
	return showCmd
}

// render writes v as YAML or JSON, or calls table for the table format.
func render(cmd *cobra.Command, v interface{}, table func(io.Writer)) error {
	out := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("output")

	switch format {
	case "json":
		return writeJSON(out, v)
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "table", "":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		table(w)
		return w.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// viewStore opens the store and runs fn in a read transaction.
func viewStore(fn func(*store.Txn) error) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return st.View(fn)
}

type systemView struct {
	ScheduleProfile string            `json:"schedule_profile" yaml:"schedule_profile"`
	QueueProfile    string            `json:"queue_profile" yaml:"queue_profile"`
	CosMapEntries   int               `json:"cos_map_entries" yaml:"cos_map_entries"`
	DscpMapEntries  int               `json:"dscp_map_entries" yaml:"dscp_map_entries"`
	Trust           string            `json:"trust" yaml:"trust"`
	QoSConfig       map[string]string `json:"qos_config" yaml:"qos_config"`
}

func runShowSystem(cmd *cobra.Command, args []string) error {
	var view systemView
	err := viewStore(func(txn *store.Txn) error {
		sys, err := txn.System()
		if err != nil {
			return fmt.Errorf("no system record, run qosd init first: %w", err)
		}
		view = systemView{
			CosMapEntries:  len(sys.CosMapEntries),
			DscpMapEntries: len(sys.DscpMapEntries),
			Trust:          sys.QoSConfig[defaults.TrustKey],
			QoSConfig:      sys.QoSConfig,
		}
		if view.ScheduleProfile, err = profileName(txn, models.KindScheduleProfile, sys.ScheduleProfile); err != nil {
			return err
		}
		view.QueueProfile, err = profileName(txn, models.KindQueueProfile, sys.QueueProfile)
		return err
	})
	if err != nil {
		return err
	}

	return render(cmd, view, func(w io.Writer) {
		fmt.Fprintf(w, "Schedule profile:\t%s\n", view.ScheduleProfile)
		fmt.Fprintf(w, "Queue profile:\t%s\n", view.QueueProfile)
		fmt.Fprintf(w, "CoS map rows:\t%d\n", view.CosMapEntries)
		fmt.Fprintf(w, "DSCP map rows:\t%d\n", view.DscpMapEntries)
		fmt.Fprintf(w, "Trust:\t%s\n", view.Trust)

		keys := make([]string, 0, len(view.QoSConfig))
		for k := range view.QoSConfig {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s\t%s\n", k, view.QoSConfig[k])
		}
	})
}

func profileName(txn *store.Txn, kind models.Kind, ref models.Ref) (string, error) {
	if ref == "" {
		return "", nil
	}
	var p models.Profile
	if err := txn.Get(kind, ref, &p); err != nil {
		return "", err
	}
	return p.Name, nil
}

type queueView struct {
	Queue           int    `json:"queue" yaml:"queue"`
	Algorithm       string `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	Weight          *int   `json:"weight,omitempty" yaml:"weight,omitempty"`
	LocalPriorities []int  `json:"local_priorities,omitempty" yaml:"local_priorities,omitempty"`
}

type profileView struct {
	Kind      string      `json:"kind" yaml:"kind"`
	Name      string      `json:"name" yaml:"name"`
	HWDefault bool        `json:"hw_default" yaml:"hw_default"`
	Active    bool        `json:"active" yaml:"active"`
	Queues    []queueView `json:"queues" yaml:"queues"`
}

func runShowProfiles(cmd *cobra.Command, args []string) error {
	var views []profileView
	err := viewStore(func(txn *store.Txn) error {
		var active map[models.Ref]bool
		if sys, err := txn.System(); err == nil {
			active = map[models.Ref]bool{sys.ScheduleProfile: true, sys.QueueProfile: true}
		}

		for _, kind := range []models.Kind{models.KindScheduleProfile, models.KindQueueProfile} {
			refs, err := txn.Records(kind)
			if err != nil {
				return err
			}
			for _, ref := range refs {
				var p models.Profile
				if err := txn.Get(kind, ref, &p); err != nil {
					return err
				}
				v, err := loadProfileView(txn, kind, &p)
				if err != nil {
					return err
				}
				v.Active = active[p.ID]
				views = append(views, v)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return render(cmd, views, func(w io.Writer) {
		fmt.Fprintln(w, "KIND\tPROFILE\tQUEUE\tALGORITHM\tWEIGHT\tLOCAL PRIORITIES")
		for _, v := range views {
			name := v.Name
			if v.Active {
				name += " (active)"
			}
			if v.HWDefault {
				name += " (hw)"
			}
			for _, q := range v.Queues {
				weight := "-"
				if q.Weight != nil {
					weight = fmt.Sprint(*q.Weight)
				}
				algorithm := q.Algorithm
				if algorithm == "" {
					algorithm = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", v.Kind, name, q.Queue, algorithm, weight, joinInts(q.LocalPriorities))
			}
		}
	})
}

func loadProfileView(txn *store.Txn, kind models.Kind, p *models.Profile) (profileView, error) {
	v := profileView{Kind: "schedule", Name: p.Name, HWDefault: p.HWDefault}
	if kind == models.KindQueueProfile {
		v.Kind = "queue"
	}
	for _, e := range p.Entries {
		q := queueView{Queue: e.Key}
		switch kind {
		case models.KindScheduleProfile:
			var entry models.QueueEntry
			if err := txn.Get(models.KindQueue, e.Value, &entry); err != nil {
				return v, err
			}
			q.Algorithm = string(entry.Algorithm)
			q.Weight = entry.Weight
		case models.KindQueueProfile:
			var entry models.PriorityEntry
			if err := txn.Get(models.KindQueueProfileEntry, e.Value, &entry); err != nil {
				return v, err
			}
			q.LocalPriorities = entry.LocalPriorities
		}
		v.Queues = append(v.Queues, q)
	}
	sort.Slice(v.Queues, func(i, j int) bool { return v.Queues[i].Queue > v.Queues[j].Queue })
	return v, nil
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

// liveRows returns the rows of one map kind the system record references.
func liveRows[T any](txn *store.Txn, kind models.Kind) ([]*T, error) {
	sys, err := txn.System()
	if err != nil {
		return nil, fmt.Errorf("no system record, run qosd init first: %w", err)
	}

	refs := sys.CosMapEntries
	if kind == models.KindDscpMapEntry {
		refs = sys.DscpMapEntries
	}

	rows := make([]*T, 0, len(refs))
	for _, ref := range refs {
		row := new(T)
		if err := txn.Get(kind, ref, row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func runShowCosMap(cmd *cobra.Command, args []string) error {
	var rows []*models.CosMapEntry
	err := viewStore(func(txn *store.Txn) (err error) {
		rows, err = liveRows[models.CosMapEntry](txn, models.KindCosMapEntry)
		return err
	})
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CodePoint < rows[j].CodePoint })

	return render(cmd, rows, func(w io.Writer) {
		fmt.Fprintln(w, "CODE POINT\tLOCAL PRIORITY\tCOLOR\tDESCRIPTION")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", r.CodePoint, r.LocalPriority, r.Color, r.Description)
		}
	})
}

func runShowDscpMap(cmd *cobra.Command, args []string) error {
	var rows []*models.DscpMapEntry
	err := viewStore(func(txn *store.Txn) (err error) {
		rows, err = liveRows[models.DscpMapEntry](txn, models.KindDscpMapEntry)
		return err
	})
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CodePoint < rows[j].CodePoint })

	return render(cmd, rows, func(w io.Writer) {
		fmt.Fprintln(w, "CODE POINT\tLOCAL PRIORITY\tPCP\tCOLOR\tDESCRIPTION")
		for _, r := range rows {
			pcp := "-"
			if r.PriorityCodePoint != nil {
				pcp = fmt.Sprint(*r.PriorityCodePoint)
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", r.CodePoint, r.LocalPriority, pcp, r.Color, r.Description)
		}
	})
}
