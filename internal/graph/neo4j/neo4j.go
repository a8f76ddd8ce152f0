package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// BoltTraverser implements graph.Traverser over the bolt protocol. The driver
// pools connections; each Traverse call opens and closes its own session.
type BoltTraverser struct {
	driver       neo4j.DriverWithContext
	database     string
	useTextIndex bool
}

// BoltConfig configures a bolt connection.
type BoltConfig struct {
	URI          string
	Username     string
	Password     string
	Database     string
	UseTextIndex bool
}

// NewBolt creates a bolt-backed traverser. The driver connects lazily, so an
// unreachable server surfaces as graph.ErrTransport from Traverse and from
// Ping, not here.
func NewBolt(cfg BoltConfig) (*BoltTraverser, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	return &BoltTraverser{driver: driver, database: cfg.Database, useTextIndex: cfg.UseTextIndex}, nil
}

// Name implements graph.Traverser.
func (b *BoltTraverser) Name() string { return string(graph.StrategyBolt) }

// Traverse implements graph.Traverser.
func (b *BoltTraverser) Traverse(ctx context.Context, q graph.Query) ([]graph.PathRecord, error) {
	stmt, err := BuildStatement(q, b.useTextIndex)
	if err != nil {
		return nil, err
	}

	session := b.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: b.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, stmt.Statement, stmt.Parameters)
		if err != nil {
			return nil, err
		}
		paths := []graph.PathRecord{}
		for records.Next(ctx) {
			v, ok := records.Record().Get("p")
			if !ok {
				return nil, fmt.Errorf("%w: record has no path column", graph.ErrDecode)
			}
			path, ok := v.(neo4j.Path)
			if !ok {
				return nil, fmt.Errorf("%w: column p is %T, not a path", graph.ErrDecode, v)
			}
			p, err := PathValues(path)
			if err != nil {
				return nil, err
			}
			if len(p.Nodes) > 0 {
				paths = append(paths, p)
			}
		}
		return paths, records.Err()
	})
	if err != nil {
		if errors.Is(err, graph.ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", graph.ErrTransport, err)
	}
	return result.([]graph.PathRecord), nil
}

// PathValues extracts the node "value" properties of a driver path, skipping
// nodes that carry none.
func PathValues(path neo4j.Path) (graph.PathRecord, error) {
	var p graph.PathRecord
	for i, n := range path.Nodes {
		v, ok := n.Props["value"]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return graph.PathRecord{}, fmt.Errorf("%w: node %d value is %T", graph.ErrDecode, i, v)
		}
		p.Nodes = append(p.Nodes, s)
	}
	return p, nil
}

// Ping verifies the driver can reach the server.
func (b *BoltTraverser) Ping(ctx context.Context) error {
	if err := b.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: neo4j connectivity: %v", graph.ErrTransport, err)
	}
	return nil
}

// Close releases the driver's connection pool.
func (b *BoltTraverser) Close(ctx context.Context) error {
	return b.driver.Close(ctx)
}

var _ graph.Traverser = (*BoltTraverser)(nil)
