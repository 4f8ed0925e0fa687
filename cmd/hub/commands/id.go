package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/idgen/core"
	"productivity-hub/pkg/idgen/registry"
	"productivity-hub/pkg/idgen/sonyflake"
)

func idCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Generate or inspect snowflake ids",
	}
	cmd.AddCommand(idNextCmd(), idParseCmd())
	return cmd
}

func idNextCmd() *cobra.Command {
	var (
		workerID     int64
		datacenterID int64
		count        int
		genType      string
		machineID    int64
	)
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print new ids, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch core.GeneratorType(genType) {
			case core.GeneratorTypeSnowflake:
			case core.GeneratorTypeSonyflake:
				return printSonyflakeIDs(cmd, machineID, count)
			default:
				return fmt.Errorf("%w: %s", core.ErrInvalidGeneratorType, genType)
			}
			svc, err := idgen.NewService(idgen.Config{WorkerID: workerID, DatacenterID: datacenterID}, nil)
			if err != nil {
				return err
			}
			ids, err := svc.NextIDBatch(workerID, datacenterID, count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				fmt.Fprintln(out, id.String())
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&workerID, "worker", "w", 0, "worker id (0-31)")
	cmd.Flags().Int64VarP(&datacenterID, "datacenter", "d", 0, "datacenter id (0-31)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ids")
	cmd.Flags().StringVarP(&genType, "type", "t", string(core.GeneratorTypeSnowflake), "generator type: snowflake | sonyflake")
	cmd.Flags().Int64Var(&machineID, "machine", 0, "sonyflake machine id (0-65535)")
	return cmd
}

func printSonyflakeIDs(cmd *cobra.Command, machineID int64, count int) error {
	gen, err := registry.New().Create("cli", core.GeneratorTypeSonyflake, &sonyflake.Config{MachineID: machineID})
	if err != nil {
		return err
	}
	ids, err := gen.NextIDBatch(count)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

func idParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <id>",
		Short: "Decode an id into time, datacenter, worker and sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idgen.ParseID(args[0])
			if err != nil {
				return err
			}
			info, err := id.Parse()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:         %d\n", info.ID)
			fmt.Fprintf(out, "time:       %s\n", id.Time().Format("2006-01-02 15:04:05.000 -0700"))
			fmt.Fprintf(out, "datacenter: %d\n", info.DatacenterID)
			fmt.Fprintf(out, "worker:     %d\n", info.WorkerID)
			fmt.Fprintf(out, "sequence:   %d\n", info.Sequence)
			return nil
		},
	}
}
