package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"xdao.co/ovm/commitment"
	"xdao.co/ovm/intervaltree"
	"xdao.co/ovm/model"
	"xdao.co/ovm/storage"
)

// treeLeaf is the JSON input of tree build and tree commit.
type treeLeaf struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
	Data  []byte `json:"data"`
}

type treeOutput struct {
	Block  *uint64                `json:"block,omitempty"`
	Root   model.Node             `json:"root"`
	Proofs []model.InclusionProof `json:"proofs"`
}

func (a *app) treeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Build and commit interval trees",
	}
	cmd.AddCommand(a.treeBuildCmd(), a.treeCommitCmd())
	return cmd
}

func (a *app) treeBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <leaves.json|->",
		Short: "Print the root and inclusion proofs of a leaf list",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := buildTree(cmd, args[0])
			if err != nil {
				return err
			}
			return a.writeJSON(describeTree(t, nil))
		},
	}
}

func (a *app) treeCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <block> <leaves.json|->",
		Short: "Build a tree and record its root for block",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return usagef("tree commit: bad block %q", args[0])
			}
			t, err := buildTree(cmd, args[1])
			if err != nil {
				return err
			}
			err = a.withStore(func(db storage.KeyValueStore) error {
				return commitment.NewStore(db).PutRoot(block, t.Root())
			})
			if err != nil {
				return err
			}
			return a.writeJSON(describeTree(t, &block))
		},
	}
}

func buildTree(cmd *cobra.Command, path string) (*intervaltree.Tree, error) {
	var in []treeLeaf
	if err := readJSON(cmd, path, &in); err != nil {
		return nil, err
	}
	leaves := make([]intervaltree.Leaf, len(in))
	for i, l := range in {
		leaves[i] = intervaltree.Leaf{Start: l.Start, End: l.End, Data: l.Data}
	}
	t, err := intervaltree.Build(leaves)
	if err != nil {
		return nil, usageError{err}
	}
	return t, nil
}

func describeTree(t *intervaltree.Tree, block *uint64) treeOutput {
	out := treeOutput{Block: block, Root: modelNode(t.Root())}
	for i := 0; i < t.Len(); i++ {
		p, _ := t.Proof(i)
		ip := model.InclusionProof{Index: p.Index, Siblings: make([]model.Node, len(p.Siblings))}
		for j, s := range p.Siblings {
			ip.Siblings[j] = modelNode(s)
		}
		out.Proofs = append(out.Proofs, ip)
	}
	return out
}

func modelNode(n intervaltree.Node) model.Node {
	return model.Node{Hash: append([]byte(nil), n.Hash[:]...), End: n.End}
}
