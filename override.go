package archivable

import "context"

// Extension interfaces let a type take part in its own save and load.
// When *T implements one of these interfaces, the Archiver calls it at the
// matching step. Types that implement none get the default no-op behavior.
//
// An error returned from any extension point aborts the operation.

// BeforeSaver runs at the beginning of Save, before anything is written.
// Use it to prepare state, e.g. flush buffers into serializable fields.
type BeforeSaver interface {
	BeforeSave(ctx context.Context) error
}

// AfterSaver runs at the end of Save, after the excluded attributes were dumped.
type AfterSaver interface {
	AfterSave(ctx context.Context) error
}

// BeforeLoader runs once per Load before the payload is decoded.
// It is invoked on the zero value of T, since no instance exists yet, and
// receives the resolved payload path.
type BeforeLoader interface {
	BeforeLoad(ctx context.Context, path string) error
}

// AfterLoader runs on the reconstructed instance at the end of Load.
type AfterLoader interface {
	AfterLoad(ctx context.Context) error
}
