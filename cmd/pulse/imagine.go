package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

var imagineOut string

var imagineCmd = &cobra.Command{
	Use:   "imagine <prompt>",
	Short: "Generate images from a prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := newProvider()
		if err != nil {
			return err
		}

		prompt := strings.Join(args, " ")
		resp, err := provider.GenerateImage(cmd.Context(), &types.GenerateRequest{
			Model: cfg.ImageModel,
			Messages: []types.Message{{
				Role:    types.RoleUser,
				Content: []types.ContentBlock{types.Text(prompt)},
			}},
		})
		if err != nil {
			return err
		}

		if text := resp.TextContent(); text != "" {
			fmt.Println(text)
		}

		images := resp.Images()
		if len(images) == 0 {
			return fmt.Errorf("model returned no images")
		}
		for i, img := range images {
			path, err := writeImage(img, i)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		}
		return nil
	},
}

func writeImage(img types.ImageBlock, index int) (string, error) {
	data, err := base64.StdEncoding.DecodeString(img.Source.Data)
	if err != nil {
		return "", fmt.Errorf("decode image data: %w", err)
	}

	ext := extensionFor(img.Source.MediaType)
	path := fmt.Sprintf("%s-%d%s", imagineOut, index+1, ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func init() {
	imagineCmd.Flags().StringVarP(&imagineOut, "out", "o", "pulse-image", "Output file prefix")
	rootCmd.AddCommand(imagineCmd)
}
