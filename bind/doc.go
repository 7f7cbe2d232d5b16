// Package bind ties an in-memory value to an external storage slot through a
// reader/writer pair. Values are decoded when the binding is created and every
// mutation is encoded and written back before the call returns.
//
// Data is the mapping specialization with dotted path access:
//
//	d, err := bind.Wrap(record, "settings", encoding.JSON, nil)
//	if err != nil {
//		return err
//	}
//	err = d.Set("ui.theme", "dark") // writes {"ui":{"theme":"dark"}}
//
// The reader is always used for decoding and the writer for encoding.
package bind
