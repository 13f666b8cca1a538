// Package version проверяет версию SSH-сервера по semver-условию.
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vdvorak/way-secshell/internal/errors"
	"github.com/vdvorak/way-secshell/internal/utils"

	"github.com/Masterminds/semver/v3"
)

var (
	operatorSpaceRe = regexp.MustCompile(`\s*([<>=!~^])\s*`)
	bareVersionRe   = regexp.MustCompile(`^\d`)
)

func Matches(versionStr, constraintStr string) (bool, error) {
	versionStr = strings.TrimSpace(versionStr)
	constraintStr = strings.TrimSpace(constraintStr)

	if constraintStr == "" {
		return true, nil
	}

	v, err := semver.NewVersion(versionStr)
	if err != nil {
		return false, errors.NewVersionError(versionStr, constraintStr, err)
	}

	constraint, err := ParseConstraint(constraintStr)
	if err != nil {
		return false, errors.NewVersionError(versionStr, constraintStr, err)
	}

	return constraint.Check(v), nil
}

// CheckServer сверяет версию из SSH-баннера с условием.
// Пустое условие пропускает любой сервер.
func CheckServer(banner, constraintStr string) error {
	if strings.TrimSpace(constraintStr) == "" {
		return nil
	}

	versionStr := utils.ExtractVersion(banner)
	if versionStr == "" {
		return errors.NewVersionError(banner, constraintStr, fmt.Errorf("не удалось извлечь версию из баннера"))
	}

	ok, err := Matches(versionStr, constraintStr)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewVersionError(versionStr, constraintStr, nil)
	}

	return nil
}

func ParseConstraint(s string) (*semver.Constraints, error) {
	s = normalize(s)

	if s == "" {
		return nil, errors.NewVersionError("", "", fmt.Errorf("пустое условие"))
	}

	return semver.NewConstraint(s)
}

// normalize склеивает операторы с версией и превращает "8.4" в "=8.4".
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = operatorSpaceRe.ReplaceAllString(s, "$1")

	if bareVersionRe.MatchString(s) {
		s = "=" + s
	}

	return s
}
