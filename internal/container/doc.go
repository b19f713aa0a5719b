// Package container implements the single-file model container.
//
// A container holds any number of named groups. Each group is an opaque payload plus a set
// of simple typed metadata attributes, so listing a file never touches payload bytes.
//
//	File Structure:
//	  [64 bytes: superblock]
//	    0x00  Magic "MSTC"
//	    0x04  Format version (uint32 LE)
//	    0x08  Flags (uint32 LE)
//	    0x0C  Generation (uint32 LE, incremented by every commit)
//	    0x10  Index offset (uint64 LE)
//	    0x18  Index size (uint64 LE)
//	    0x20  SHA-256 of the index bytes
//	  [Payloads: 64-byte aligned blobs]
//	  [Index: JSON array of group metadata in insertion order]
//
// Adding groups appends the payloads and a fresh index past the current end of file,
// syncs, and only then rewrites the superblock. A crash at any earlier point leaves the
// previous superblock pointing at the previous, intact index. Deleting or replacing groups
// rewrites the live groups into a temporary file that is renamed over the original, so
// removed bytes never linger in the file.
//
// Example usage:
//
//	f, err := container.OpenOrCreate("models.msc", container.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	w, err := f.CreateGroup("default", false)
//	w.SetAttrs(container.Metadata{Type: "estimators.KMeans", ClassRepr: "KMeans(k=10)"})
//	w.Write(payload)
//	err = w.Commit()
//
//	for _, name := range f.Groups() {
//	    meta, _ := f.Metadata(name)
//	    fmt.Println(meta.Name, meta.Created, meta.ClassRepr)
//	}
package container
