// Package recstore keeps key/value records in a flat, append-only text file.
//
// Each record is a single line of `key=value` pairs separated by '|':
//
//	file=a.txt|rule=r1|result=pass
//
// The set of keys is fixed by a [Schema]. Encoding always writes every schema
// field in schema order, substituting an empty string for missing fields.
// Decoding returns only the keys present in the line.
//
// # Basic Usage
//
//	s, err := recstore.New(recstore.Config{
//	    Path: "data/store.txt",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec, err := s.Codec().ParseFields([]string{"file=a.txt", "result=pass"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = s.Append(rec)
//
//	records, err := s.LoadAll()
//	fmt.Println(s.Summarize(records)) // count=1
//
// # Errors
//
// Validation errors wrap [ErrInvalidFormat], [ErrUnknownField] or
// [ErrInvalidValue]. A corrupt store line fails the load with
// [ErrMalformedRecord]. Filesystem failures wrap [ErrIO]. Use errors.Is to
// tell them apart.
//
// # Thread Safety
//
// There is none. Every operation opens, uses and closes the file. Two
// processes appending at the same time can interleave their writes.
package recstore
