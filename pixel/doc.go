// Package pixel implements the color models and pixel buffers used by the dithering engine
// and the e-paper panel drivers.
//
// This package provides packed RGB and palette-indexed buffers and a CIE L*a*b* color type,
// compatible with Go's native [color.Color] and [image.Image] / [draw.Image] interfaces.
package pixel
