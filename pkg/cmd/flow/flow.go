package flow

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/pipeflow/internal/processor"
	"github.com/mpapenbr/pipeflow/pkg/config"
)

var levels []float64

func NewFlowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "calculate the flow rate for given water levels",
		Long: `Calculates the partially filled pipe geometry and the flow rate
(Manning's equation) for one or more water levels given in mm.`,
		Example: "pipeflow flow --level 10,45,90 --pipe-diameter 0.09",
		RunE: func(cmd *cobra.Command, args []string) error {
			return calcFlow(cmd.OutOrStdout(), config.DefaultPipelineParams(), levels)
		},
	}
	cmd.Flags().Float64SliceVar(&levels, "level", []float64{}, "water level(s) in mm")
	config.AddParamFlags(cmd.Flags(), config.DefaultPipelineParams())
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func calcFlow(w io.Writer, p *config.Params, levels []float64) error {
	if err := p.Validate(); err != nil {
		return err
	}
	h := processor.Hydraulics{
		DiameterM: p.PipeDiameterM,
		Roughness: p.ManningsRoughness,
		Slope:     p.PipeSlope,
	}
	fmt.Fprintf(w, "%10s %10s %12s %12s %12s %12s\n",
		"level mm", "theta rad", "area m²", "perimeter m", "radius m", "flow l/s")
	for _, level := range levels {
		res, err := h.Flow(level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "level %v: %v\n", level, err)
			continue
		}
		fmt.Fprintf(w, "%10.2f %10.4f %12.8f %12.6f %12.6f %12.4f\n",
			res.LevelM*1000,
			res.Theta,
			res.Area,
			res.WettedPerimeter,
			res.HydraulicRadius,
			res.Rate*1000)
	}
	fmt.Fprintf(w, "full pipe: %.4f l/s\n", h.FullFlow()*1000)
	return nil
}
