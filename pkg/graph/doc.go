// Package graph defines the part graph built by job scripts. The graph is
// an immutable DAG of primitive solids, transforms, boolean operations and
// groups; the tessellator turns it into the mesh that is sliced.
package graph
