// Errno codes for disk image operations. These follow the Linux numbering
// rather than the host's, since the syscall package doesn't define every
// value we need on all platforms (EUCLEAN and EMEDIUMTYPE in particular).

package errors

import (
	"fmt"
)

type Errno int

const (
	EOK Errno = iota
	EPERM
	ENOENT
	EINTR
	EIO
	EBADF
	EAGAIN
	EACCES
	EFAULT
	ENOTBLK
	EBUSY
	EEXIST
	EXDEV
	ENODEV
	ENOTDIR
	EISDIR
	EINVAL
	ENFILE
	EMFILE
	EFBIG
	ENOSPC
	ESPIPE
	EROFS
	EMLINK
	EDOM
	ERANGE
	EDEADLK
	ENAMETOOLONG
	ENOSYS
	ENOTEMPTY
	ELOOP
	ENODATA
	EOVERFLOW
	EBADFD
	EUSERS
	ENOTSUP
	ENOBUFS
	EALREADY
	ESTALE
	EUCLEAN
	EDQUOT
	EMEDIUMTYPE
)

var errorMessagesByCode = map[Errno]string{
	EPERM:        "Operation not permitted",
	ENOENT:       "No such file or directory",
	EINTR:        "Interrupted system call",
	EIO:          "Input/output error",
	EBADF:        "Bad file descriptor",
	EAGAIN:       "Resource temporarily unavailable",
	EACCES:       "Permission denied",
	EFAULT:       "Bad address",
	ENOTBLK:      "Block device required",
	EBUSY:        "Device or resource busy",
	EEXIST:       "File exists",
	EXDEV:        "Invalid cross-device link",
	ENODEV:       "No such device",
	ENOTDIR:      "Not a directory",
	EISDIR:       "Is a directory",
	EINVAL:       "Invalid argument",
	ENFILE:       "Too many open files in system",
	EMFILE:       "Too many open files",
	EFBIG:        "File too large",
	ENOSPC:       "No space left on device",
	ESPIPE:       "Illegal seek",
	EROFS:        "Read-only file system",
	EMLINK:       "Too many links",
	EDOM:         "Numerical argument out of domain",
	ERANGE:       "Numerical result out of range",
	ENAMETOOLONG: "File name too long",
	ENOSYS:       "Function not implemented",
	ENOTEMPTY:    "Directory not empty",
	ELOOP:        "Too many levels of symbolic links",
	ENODATA:      "No data available",
	EOVERFLOW:    "Value too large for defined data type",
	EBADFD:       "File descriptor in bad state",
	EUSERS:       "Too many users",
	ENOTSUP:      "Operation not supported",
	ENOBUFS:      "No buffer space available",
	EALREADY:     "Operation already in progress",
	ESTALE:       "Stale file handle",
	EUCLEAN:      "Structure needs cleaning",
	EDQUOT:       "Disk quota exceeded",
	EMEDIUMTYPE:  "Wrong medium type",
}

// Named errors for every failure the library reports. Callers that need to
// branch on the kind of failure should use [Is] with the errno code rather
// than comparing against these directly, since most call sites attach their
// own message text.
var ErrNotFound = New(ENOENT)
var ErrIOFailed = New(EIO)
var ErrNoSpaceOnDevice = New(ENOSPC)
var ErrDirectoryFull = NewWithMessage(ENFILE, "directory is full")
var ErrNameTooLong = New(ENAMETOOLONG)
var ErrInvalidArgument = New(EINVAL)
var ErrSectorZero = NewWithMessage(EFAULT, "sector 0 does not exist")
var ErrCorruptChain = NewWithMessage(EUCLEAN, "sector chain does not terminate")
var ErrUnknownGeometry = NewWithMessage(EMEDIUMTYPE, "unrecognized disk image size")

func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}
