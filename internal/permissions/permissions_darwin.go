//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Foundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

// requestMicrophonePermission shows the system prompt and blocks until the
// user answers.
int requestMicrophonePermission() {
    __block BOOL result = NO;
    dispatch_semaphore_t sem = dispatch_semaphore_create(0);
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {
        result = granted;
        dispatch_semaphore_signal(sem);
    }];
    dispatch_semaphore_wait(sem, DISPATCH_TIME_FOREVER);
    return result ? 1 : 0;
}
*/
import "C"

import (
	"context"
	"fmt"
)

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() int {
	return int(C.checkMicrophonePermission())
}

// RequestMicrophone asks for microphone access, prompting the user if they
// have not decided yet.
func RequestMicrophone(ctx context.Context) error {
	switch status := CheckMicrophone(); status {
	case PermissionAuthorized:
		return nil
	case PermissionDenied, PermissionRestricted:
		return fmt.Errorf("%w (status %d)", ErrDenied, status)
	}

	granted := make(chan bool, 1)
	go func() {
		granted <- C.requestMicrophonePermission() == 1
	}()

	select {
	case ok := <-granted:
		if !ok {
			return ErrDenied
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
