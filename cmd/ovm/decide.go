package main

import (
	"github.com/spf13/cobra"

	"xdao.co/ovm/model"
	"xdao.co/ovm/ovm"
)

func (a *app) decideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decide <request.json|->",
		Short: "Decide a property with an optional witness",
		Long: `Decide reads a JSON DecideRequest ({"property": ..., "witness": ...}),
evaluates it against the configured store and prints the DecideResponse.
Leaf decisions are cached; an undecided property is reported with state
"undecided" and the rule that blocked it.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req model.DecideRequest
			if err := readJSON(cmd, args[0], &req); err != nil {
				return err
			}
			return a.withExecutor(func(e *ovm.Executor) error {
				resp, err := model.Decide(cmd.Context(), e, req)
				if err != nil {
					return err
				}
				return a.writeJSON(resp)
			})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <property.json|->",
		Short: "Report the decision of a property from cached leaves only",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p model.Property
			if err := readJSON(cmd, args[0], &p); err != nil {
				return err
			}
			return a.withExecutor(func(e *ovm.Executor) error {
				resp, err := model.Check(cmd.Context(), e, p)
				if err != nil {
					return err
				}
				return a.writeJSON(resp)
			})
		},
	}
}

type replayOutput struct {
	Outcome bool `json:"outcome"`
}

func (a *app) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <response.json|->",
		Short: "Re-derive the outcome of a decision proof without the cache",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp model.DecideResponse
			if err := readJSON(cmd, args[0], &resp); err != nil {
				return err
			}
			proof, err := model.ToProof(resp.Proof)
			if err != nil {
				return usageError{err}
			}
			return a.withExecutor(func(e *ovm.Executor) error {
				ok, err := e.Replay(cmd.Context(), proof)
				if err != nil {
					return err
				}
				return a.writeJSON(replayOutput{Outcome: ok})
			})
		},
	}
}
