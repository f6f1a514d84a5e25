package mycnf

import (
	"context"
	"fmt"

	"github.com/yairfalse/kaksonen/internal/logger"
	"github.com/yairfalse/kaksonen/internal/remote"
)

// Report summarizes one replication run
type Report struct {
	Root           string   `json:"root" yaml:"root"`
	ServerID       uint32   `json:"server_id" yaml:"server_id"`
	ServerIDPath   string   `json:"server_id_path,omitempty" yaml:"server_id_path,omitempty"`
	ServerIDOption string   `json:"server_id_option,omitempty" yaml:"server_id_option,omitempty"`
	Structured     []string `json:"structured" yaml:"structured"`
	Raw            []string `json:"raw" yaml:"raw"`
}

// Replicator copies option file hierarchies to a destination host
type Replicator struct {
	resolver Resolver
	log      logger.Logger
}

// NewReplicator creates a Replicator; a nil resolver means the system resolver
func NewReplicator(resolver Resolver, log logger.Logger) *Replicator {
	return &Replicator{
		resolver: resolver,
		log:      log,
	}
}

// CloneConfig finds the root option file on the tree's host, discovers its
// hierarchy and replicates it to dst with the server id derived from dst
func (r *Replicator) CloneConfig(ctx context.Context, tree *Tree, candidates []string, dst remote.Executor) (*Report, error) {
	root, err := tree.FindRootConfig(ctx, candidates)
	if err != nil {
		return nil, err
	}
	r.log.WithField("root", root).Debug("root option file selected")

	h, err := tree.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	serverID, err := ServerID(ctx, r.resolver, dst.Host())
	if err != nil {
		return nil, err
	}

	return r.Replicate(ctx, h, dst, serverID)
}

// Replicate writes every fragment of h to the same path on dst, once each.
//
// The server id goes into exactly one fragment: the first one whose [mysqld]
// group already sets server_id or server-id, or failing that the first one
// with a [mysqld] group at all. Fragments that do not parse are written
// verbatim.
func (r *Replicator) Replicate(ctx context.Context, h *Hierarchy, dst remote.Executor, serverID uint32) (*Report, error) {
	report := &Report{
		Root:     h.Root,
		ServerID: serverID,
	}

	for _, f := range h.Fragments {
		f.Parse()
		if f.Kind == Raw {
			r.log.WithFields(map[string]interface{}{
				"path":  f.Path,
				"error": f.ParseErr.Error(),
			}).Warn("option file cannot be rewritten, copying it verbatim")
		}
	}

	target, option := placeServerID(h.Fragments)
	if target != nil {
		if err := target.SetServerID(option, serverID); err != nil {
			return nil, err
		}
		report.ServerIDPath = target.Path
		report.ServerIDOption = option
		r.log.WithFields(map[string]interface{}{
			"path":      target.Path,
			"option":    option,
			"server_id": serverID,
		}).Info("server id assigned")
	} else {
		r.log.Warn("no [mysqld] group found in any option file, server id not set")
	}

	for _, f := range h.Fragments {
		content, err := f.Render()
		if err != nil {
			return nil, err
		}
		if err := dst.WriteContent(ctx, f.Path, content); err != nil {
			return nil, fmt.Errorf("failed to write %s to %s: %w", f.Path, dst.Host(), err)
		}

		if f.Kind == Raw {
			report.Raw = append(report.Raw, f.Path)
		} else {
			report.Structured = append(report.Structured, f.Path)
		}
	}

	return report, nil
}

// placeServerID picks the fragment and option spelling that receive the id
func placeServerID(fragments []*Fragment) (*Fragment, string) {
	for _, f := range fragments {
		if option := f.ServerIDOption(); option != "" {
			return f, option
		}
	}
	for _, f := range fragments {
		if f.HasServerSection() {
			return f, serverIDOptions[0]
		}
	}
	return nil, ""
}
