// Package octogo indexes the 3D geometry of building models in linear
// octrees.
//
// Each model maps octree cells to the building elements occupying them. An
// element's solid is subdivided from the smallest cell containing it down to
// a fixed maximum depth; cells fully inside the solid stop early, partially
// covered cells become boundary cells at the maximum depth.
//
// # Quick Start
//
//	space, _ := cell.NewSpace(geom.NewBox(geom.V(0, 0, 0), geom.V(256, 256, 64)))
//	store, _ := blobstore.NewLocalStore("./data")
//	db, _ := octogo.Open(space, octogo.WithBlobStore(store), octogo.WithMaxDepth(10))
//	defer db.Close()
//
//	res, _ := db.Build(ctx, "tower", []octogo.Item{
//	    {Identity: wallID, Solid: wallSolid},
//	    {Identity: slabID, Solid: slabSolid},
//	})
//	version, _ := db.Save(ctx, "tower")
//
// # Queries
//
// Query returns the elements whose persisted cells coincide with, contain or
// lie inside the cells of an ad-hoc solid:
//
//	ids, _ := db.Query(ctx, "tower", geom.NewCuboid(roomBox))
//
// Relate reports the overlay entries for a set of solids, i.e. at which
// persisted granularity each of their cells was found:
//
//	entries, _ := db.Relate(ctx, "tower", items)
//
// # Persistence
//
// Models are saved as versioned snapshot files through a blobstore.BlobStore
// (local directory, memory, S3, S3 with a DynamoDB commit table, or MinIO)
// and rehydrated lazily on first use.
package octogo
