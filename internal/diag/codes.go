package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Ввод/вывод
	IOInfo          Code = 4000
	IOLoadFileError Code = 4001
	IODecodeError   Code = 4002
	IOWriteError    Code = 4003

	// Трансляция определений
	TransInfo                 Code = 5000
	TransUnsupportedConstruct Code = 5001
	TransAmbiguousTraitImpl   Code = 5002
	TransMultipleLoopExits    Code = 5003
	TransCircularDependency   Code = 5004
	TransFailedDependency     Code = 5005
	TransInvalidIR            Code = 5006
	TransAliasCycle           Code = 5007
	TransSkipped              Code = 5008
	TransCacheHit             Code = 5009

	// Конфигурация
	CfgInfo           Code = 6000
	CfgInvalidValue   Code = 6001
	CfgUnknownSection Code = 6002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:               "Unknown error",
		IOInfo:                    "I/O information",
		IOLoadFileError:           "Failed to load file",
		IODecodeError:             "Failed to decode crate bundle",
		IOWriteError:              "Failed to write output",
		TransInfo:                 "Translation information",
		TransUnsupportedConstruct: "Unsupported construct",
		TransAmbiguousTraitImpl:   "Ambiguous or missing trait implementation",
		TransMultipleLoopExits:    "Loop has more than one exit",
		TransCircularDependency:   "Circular dependency between definitions",
		TransFailedDependency:     "Dependency failed to translate",
		TransInvalidIR:            "Malformed input body",
		TransAliasCycle:           "Cyclic mutable borrow chain",
		TransSkipped:              "Definition skipped by configuration",
		TransCacheHit:             "Translation reused from cache",
		CfgInfo:                   "Configuration information",
		CfgInvalidValue:           "Invalid configuration value",
		CfgUnknownSection:         "Unknown configuration key",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("TRN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
