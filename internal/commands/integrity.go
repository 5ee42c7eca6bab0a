package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"evalgo.org/qosd/internal/integrity"
	"evalgo.org/qosd/models"
)

func newIntegrityCmd() *cobra.Command {
	integrityCmd := &cobra.Command{
		Use:   "integrity",
		Short: "Configuration store integrity checking and repair",
		Long:  `Scan, validate, and repair the QoS records of the configuration store`,
	}

	integrityHealthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check store health",
		Long:  `Perform a quick health check and display the health score`,
		RunE:  runIntegrityHealth,
	}

	integrityScanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for integrity issues",
		Long:  `Perform a comprehensive scan for duplicate profiles, orphaned rows, broken references and invalid records`,
		RunE:  runIntegrityScan,
	}
	addScanFlags(integrityScanCmd)
	integrityScanCmd.Flags().Bool("json", false, "Output results as JSON")

	integrityPlanCmd := &cobra.Command{
		Use:   "plan",
		Short: "Create a repair plan",
		Long:  `Scan the store and generate a repair plan for the detected issues`,
		RunE:  runIntegrityPlan,
	}
	integrityPlanCmd.Flags().String("strategy", string(integrity.StrategyKeepActive), "Resolution strategy (keep_active, manual)")
	integrityPlanCmd.Flags().StringSlice("risk", []string{"low", "medium", "high"}, "Risk levels to include (low, medium, high)")
	integrityPlanCmd.Flags().String("save", "", "Write the plan to this file")
	integrityPlanCmd.Flags().Bool("json", false, "Output plan as JSON")

	integrityRepairCmd := &cobra.Command{
		Use:   "repair",
		Short: "Execute repair operations",
		Long:  `Execute a saved or freshly created repair plan to fix integrity issues`,
		RunE:  runIntegrityRepair,
	}
	integrityRepairCmd.Flags().Bool("dry-run", true, "Perform a dry-run without making actual changes")
	integrityRepairCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	integrityRepairCmd.Flags().String("plan", "", "Execute a plan saved with 'qosd integrity plan --save'")
	integrityRepairCmd.Flags().String("strategy", string(integrity.StrategyKeepActive), "Resolution strategy (keep_active, manual)")
	integrityRepairCmd.Flags().StringSlice("risk", []string{"low", "medium"}, "Risk levels to include (low, medium, high)")

	integrityCmd.AddCommand(integrityHealthCmd)
	integrityCmd.AddCommand(integrityScanCmd)
	integrityCmd.AddCommand(integrityPlanCmd)
	integrityCmd.AddCommand(integrityRepairCmd)
	return integrityCmd
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("duplicates", true, "Scan for duplicate profiles")
	cmd.Flags().Bool("orphans", true, "Scan for orphaned records")
	cmd.Flags().Bool("references", true, "Scan for reference integrity")
	cmd.Flags().Bool("schemas", true, "Scan for schema validation errors")
	cmd.Flags().StringSlice("kinds", []string{}, "Record kinds to report (empty = all)")
}

func scanOptions(cmd *cobra.Command) (integrity.ScanOptions, error) {
	options := integrity.DefaultScanOptions()
	options.ScanDuplicates, _ = cmd.Flags().GetBool("duplicates")
	options.ScanOrphans, _ = cmd.Flags().GetBool("orphans")
	options.ScanReferences, _ = cmd.Flags().GetBool("references")
	options.ScanSchemas, _ = cmd.Flags().GetBool("schemas")

	kinds, _ := cmd.Flags().GetStringSlice("kinds")
	for _, k := range kinds {
		kind := models.Kind(k)
		if !kind.Valid() {
			return options, fmt.Errorf("unknown record kind %q", k)
		}
		options.Kinds = append(options.Kinds, kind)
	}
	return options, nil
}

// openIntegrity opens the store and an integrity service on top of it. The
// returned func releases both.
func openIntegrity() (*integrity.Service, func(), error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	svc, err := integrity.NewService(st, cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to create integrity service: %w", err)
	}

	return svc, func() {
		_ = svc.Close()
		_ = st.Close()
	}, nil
}

func runIntegrityHealth(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🏥 Checking Store Health")
	fmt.Fprintln(out)

	svc, closeFn, err := openIntegrity()
	if err != nil {
		return err
	}
	defer closeFn()

	health, err := svc.CheckHealth(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Fprintf(out, "Timestamp:       %s\n", health.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Total Records:   %d\n", health.TotalDocuments)
	fmt.Fprintf(out, "Store Size:      %d bytes\n", health.DatabaseSize)
	fmt.Fprintf(out, "Issues Found:    %d\n", health.IssueCount)
	fmt.Fprintf(out, "QoS Ready:       %v\n", health.QoSReady)
	fmt.Fprintln(out)

	scoreColor := getScoreColor(health.HealthScore)
	fmt.Fprintf(out, "Health Score:    %s%d/100%s\n", scoreColor, health.HealthScore, colorReset)
	fmt.Fprintln(out)

	printCounts(out, "Issues by Type:", health.IssuesByType, nil)
	printCounts(out, "Issues by Severity:", health.IssuesBySeverity, getSeverityColor)

	if len(health.Recommendations) > 0 {
		fmt.Fprintln(out, "Recommendations:")
		for _, rec := range health.Recommendations {
			fmt.Fprintf(out, "  • %s\n", rec)
		}
		fmt.Fprintln(out)
	}

	if health.HealthScore < 50 {
		return fmt.Errorf("store health is critical (score: %d)", health.HealthScore)
	}

	return nil
}

func runIntegrityScan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	outputJSON, _ := cmd.Flags().GetBool("json")

	options, err := scanOptions(cmd)
	if err != nil {
		return err
	}

	svc, closeFn, err := openIntegrity()
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := svc.Scan(cmd.Context(), options)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, "🔍 Scanning for Integrity Issues")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Scan ID:          %s\n", report.ID)
		fmt.Fprintf(out, "Duration:         %v\n", report.Duration)
		fmt.Fprintf(out, "Records Scanned:  %d\n", report.DocumentsScanned)
		fmt.Fprintf(out, "Issues Found:     %d\n", report.Summary.TotalIssues)
		fmt.Fprintln(out)

		scoreColor := getScoreColor(report.Summary.HealthScore)
		fmt.Fprintf(out, "Health Score:     %s%d/100%s\n", scoreColor, report.Summary.HealthScore, colorReset)
		fmt.Fprintln(out)

		printCounts(out, "Issues by Type:", report.Summary.ByType, nil)
		printCounts(out, "Issues by Severity:", report.Summary.BySeverity, getSeverityColor)

		if len(report.IssuesFound) > 0 {
			fmt.Fprintln(out, "Detailed Issues:")
			for i, issue := range report.IssuesFound {
				if i >= 10 {
					fmt.Fprintf(out, "  ... and %d more issues\n", len(report.IssuesFound)-10)
					break
				}
				severityColor := getSeverityColor(issue.Severity)
				fmt.Fprintf(out, "\n  Issue #%d:\n", i+1)
				fmt.Fprintf(out, "    Type:        %s\n", issue.Type)
				fmt.Fprintf(out, "    Severity:    %s%s%s\n", severityColor, issue.Severity, colorReset)
				fmt.Fprintf(out, "    Record:      %s (%s)\n", issue.DocumentID, issue.DocumentType)
				fmt.Fprintf(out, "    Description: %s\n", issue.Description)
			}
			fmt.Fprintln(out)
		}

		if report.Summary.TotalIssues > 0 {
			fmt.Fprintln(out, "Next Steps:")
			fmt.Fprintln(out, "  1. Review the issues above")
			fmt.Fprintln(out, "  2. Run 'qosd integrity plan' to create a repair plan")
			fmt.Fprintln(out, "  3. Execute the plan with 'qosd integrity repair'")
			fmt.Fprintln(out)
		} else {
			fmt.Fprintln(out, "✅ No integrity issues found!")
			fmt.Fprintln(out)
		}
	}

	if report.Summary.TotalIssues > 0 {
		return fmt.Errorf("found %d integrity issues", report.Summary.TotalIssues)
	}

	return nil
}

func planFlags(cmd *cobra.Command) (integrity.ResolutionStrategy, []integrity.RiskLevel, error) {
	strategyStr, _ := cmd.Flags().GetString("strategy")
	riskLevels, _ := cmd.Flags().GetStringSlice("risk")

	strategy := integrity.ResolutionStrategy(strategyStr)
	switch strategy {
	case integrity.StrategyKeepActive, integrity.StrategyManual:
	default:
		return "", nil, fmt.Errorf("unknown strategy %q", strategyStr)
	}

	var riskFilter []integrity.RiskLevel
	for _, risk := range riskLevels {
		level := integrity.RiskLevel(strings.ToLower(risk))
		switch level {
		case integrity.RiskLow, integrity.RiskMedium, integrity.RiskHigh:
			riskFilter = append(riskFilter, level)
		default:
			return "", nil, fmt.Errorf("unknown risk level %q", risk)
		}
	}
	return strategy, riskFilter, nil
}

// buildPlan scans the store with every check enabled and turns the report
// into a plan.
func buildPlan(ctx context.Context, svc *integrity.Service, cmd *cobra.Command) (*integrity.RepairPlan, error) {
	strategy, riskFilter, err := planFlags(cmd)
	if err != nil {
		return nil, err
	}

	report, err := svc.Scan(ctx, integrity.DefaultScanOptions())
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	plan, err := svc.CreateRepairPlan(report, strategy, riskFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to create repair plan: %w", err)
	}
	return plan, nil
}

func runIntegrityPlan(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	outputJSON, _ := cmd.Flags().GetBool("json")
	savePath, _ := cmd.Flags().GetString("save")

	svc, closeFn, err := openIntegrity()
	if err != nil {
		return err
	}
	defer closeFn()

	plan, err := buildPlan(cmd.Context(), svc, cmd)
	if err != nil {
		return err
	}

	if savePath != "" {
		if err := integrity.SavePlanToFile(plan, savePath); err != nil {
			return err
		}
	}

	if outputJSON {
		return writeJSON(out, plan)
	}

	fmt.Fprintln(out, "🔧 Creating Repair Plan")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Plan ID:            %s\n", plan.ID)
	fmt.Fprintf(out, "Strategy:           %s\n", plan.Strategy)
	fmt.Fprintf(out, "Operations:         %d\n", len(plan.Operations))
	fmt.Fprintf(out, "Estimated Duration: %dms\n", plan.EstimatedDuration)
	fmt.Fprintln(out)

	if len(plan.Operations) > 0 {
		opTypes := make(map[integrity.OperationType]int)
		for _, op := range plan.Operations {
			opTypes[op.Type]++
		}
		printCounts(out, "Operations by Type:", opTypes, nil)

		fmt.Fprintln(out, "Sample Operations:")
		for i, op := range plan.Operations {
			if i >= 5 {
				fmt.Fprintf(out, "  ... and %d more operations\n", len(plan.Operations)-5)
				break
			}
			riskColor := getRiskColor(op.Risk)
			fmt.Fprintf(out, "  %d. [%s%s%s] %s\n", i+1, riskColor, op.Risk, colorReset, op.Action)
		}
		fmt.Fprintln(out)

		if savePath != "" {
			fmt.Fprintf(out, "Plan saved to %s\n\n", savePath)
		}

		fmt.Fprintln(out, "Next Steps:")
		fmt.Fprintln(out, "  1. Review the operations above")
		fmt.Fprintln(out, "  2. Run 'qosd integrity repair --dry-run=true' to test")
		fmt.Fprintln(out, "  3. Run 'qosd integrity repair --dry-run=false' to execute")
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, "✅ No repair operations needed!")
		fmt.Fprintln(out)
	}

	return nil
}

func runIntegrityRepair(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipConfirm, _ := cmd.Flags().GetBool("yes")
	planPath, _ := cmd.Flags().GetString("plan")

	if dryRun {
		fmt.Fprintln(out, "🔍 Dry-Run Mode: Simulating Repairs")
	} else {
		fmt.Fprintln(out, "⚠️  Live Mode: Executing Repairs")
	}
	fmt.Fprintln(out)

	svc, closeFn, err := openIntegrity()
	if err != nil {
		return err
	}
	defer closeFn()

	var plan *integrity.RepairPlan
	if planPath != "" {
		fmt.Fprintf(out, "Loading repair plan from %s...\n", planPath)
		plan, err = integrity.LoadPlanFromFile(planPath)
	} else {
		fmt.Fprintln(out, "Creating repair plan...")
		plan, err = buildPlan(cmd.Context(), svc, cmd)
	}
	if err != nil {
		return err
	}
	plan.DryRun = dryRun

	fmt.Fprintf(out, "Found %d operations to execute\n\n", len(plan.Operations))

	if len(plan.Operations) == 0 {
		fmt.Fprintln(out, "✅ No repairs needed!")
		return nil
	}

	if !dryRun && !skipConfirm {
		fmt.Fprintf(out, "⚠️  WARNING: This will modify %d records in the store!\n", len(plan.Operations))
		fmt.Fprint(out, "Are you sure you want to continue? (yes/no): ")
		if !confirmed(cmd.InOrStdin()) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
		fmt.Fprintln(out)
	}

	result, err := svc.ExecutePlan(cmd.Context(), plan)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Execution ID:      %s\n", result.ExecutionID)
	fmt.Fprintf(out, "Duration:          %v\n", result.Duration)
	fmt.Fprintf(out, "Operations:        %d total\n", len(result.Operations))
	fmt.Fprintf(out, "Successful:        %s%d%s\n", colorGreen, result.SuccessCount, colorReset)
	fmt.Fprintf(out, "Failed:            %s%d%s\n", colorRed, result.FailureCount, colorReset)
	fmt.Fprintf(out, "Dry-Run:           %v\n", result.DryRun)

	if result.Aborted {
		fmt.Fprintf(out, "Status:            %sABORTED%s\n", colorRed, colorReset)
		fmt.Fprintf(out, "Reason:            %v\n", result.AbortReason)
	}
	fmt.Fprintln(out)

	if result.FailureCount > 0 {
		fmt.Fprintln(out, "Failed Operations:")
		for i, opResult := range result.Operations {
			if !opResult.Success {
				fmt.Fprintf(out, "  %d. %s - %v\n", i+1, opResult.Operation.DocumentID, opResult.Error)
			}
		}
		fmt.Fprintln(out)
	}

	switch {
	case result.DryRun:
		fmt.Fprintln(out, "✅ Dry-run completed successfully!")
		fmt.Fprintln(out, "Run with --dry-run=false to execute actual repairs.")
	case result.Aborted:
		return fmt.Errorf("repair aborted: %s", result.AbortReason)
	case result.FailureCount > 0:
		return fmt.Errorf("%d operations failed", result.FailureCount)
	default:
		fmt.Fprintln(out, "✅ All repairs completed successfully!")
	}

	return nil
}

func confirmed(in io.Reader) bool {
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// printCounts prints a titled count breakdown in key order.
func printCounts[K ~string](out io.Writer, title string, counts map[K]int, color func(K) string) {
	if len(counts) == 0 {
		return
	}

	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	fmt.Fprintln(out, title)
	for _, k := range keys {
		if color != nil {
			fmt.Fprintf(out, "  %s%s%s: %d\n", color(k), k, colorReset, counts[k])
		} else {
			fmt.Fprintf(out, "  %s: %d\n", k, counts[k])
		}
	}
	fmt.Fprintln(out)
}

// Color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorOrange = "\033[38;5;208m"
)

// getScoreColor returns the appropriate color for a health score
func getScoreColor(score int) string {
	if score >= 90 {
		return colorGreen
	} else if score >= 70 {
		return colorYellow
	} else if score >= 50 {
		return colorOrange
	}
	return colorRed
}

// getSeverityColor returns the appropriate color for a severity level
func getSeverityColor(severity integrity.Severity) string {
	switch severity {
	case integrity.SeverityCritical:
		return colorRed
	case integrity.SeverityHigh:
		return colorOrange
	case integrity.SeverityMedium:
		return colorYellow
	case integrity.SeverityLow:
		return colorGreen
	default:
		return colorReset
	}
}

// getRiskColor returns the appropriate color for a risk level
func getRiskColor(risk integrity.RiskLevel) string {
	switch risk {
	case integrity.RiskHigh:
		return colorRed
	case integrity.RiskMedium:
		return colorYellow
	case integrity.RiskLow:
		return colorGreen
	default:
		return colorReset
	}
}
