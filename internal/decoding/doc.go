// Package decoding turns the raw bytes of an hourly grid report into text.
//
// Source files arrive in whatever encoding the exporting tool used, most often
// GBK from Chinese spreadsheet software, sometimes UTF-8 with or without a byte
// order mark, occasionally Big5. The Resolver tries an ordered list of
// candidate encodings and accepts the first one whose output looks like a
// clean report: no replacement or mojibake sequences, at least one CJK
// ideograph, and the 月/日/时 header tokens present.
//
// Candidates are plain data. The default order is UTF-8, GBK, GB2312, Big5,
// GB18030 and can be changed by name through NewResolverFromNames.
package decoding
