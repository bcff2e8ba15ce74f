// Package as400 drives an IBM i host over SSH.
//
// CL commands run through the PASE system utility and SQL runs through
// db2util, so the host only needs its SSH daemon and the open-source
// db2util package. Host messages and SQL codes are translated into the
// domain host errors so callers never inspect raw host output.
package as400
